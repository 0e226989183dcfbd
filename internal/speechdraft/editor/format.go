package editor

import (
	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/lexical"
	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/tiptap"
)

// Format формат сохраненного документа.
type Format int

const (
	FormatUnknown Format = iota
	FormatLexical
	FormatTipTap
)

func (f Format) String() string {
	switch f {
	case FormatLexical:
		return "lexical"
	case FormatTipTap:
		return "tiptap"
	}
	return "unknown"
}

// DetectFormat определяет формат распарсенного JSON документа.
// Проверка TipTap идет первой, документ с полями root и type=doc считается TipTap.
func DetectFormat(v any) Format {
	if tiptap.IsDocument(v) {
		return FormatTipTap
	}
	if lexical.IsDocument(v) {
		return FormatLexical
	}
	return FormatUnknown
}
