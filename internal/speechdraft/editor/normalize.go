// Пакет editor приводит сохраненные тексты речей к формату TipTap.
//
// В хранилище встречаются документы двух форматов: старого редактора Lexical и текущего TipTap.
// Normalize принимает любое сохраненное значение и возвращает документ TipTap или nil.
//
// Основные возможности:
//   - Определение формата документа (DetectFormat).
//   - Разбор JSON, сохраненного строкой. Невалидный JSON считается простым текстом.
//   - Конвертация Lexical в TipTap, документы TipTap возвращаются без изменений.
//   - Возврат пустого параграфа при ошибке конвертации вместо частично сконвертированного документа.
package editor

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/lexical"
	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/tiptap"
)

// Normalizer приводит документы к формату TipTap. Ошибки не возвращаются, а пишутся в лог.
type Normalizer struct {
	log *slog.Logger
}

func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{log: logger}
}

// Normalize с логгером по умолчанию.
func Normalize(content any) *tiptap.Document {
	return NewNormalizer(nil).Normalize(content)
}

// Normalize возвращает документ TipTap или nil для пустого и нераспознанного значения.
// Принимает распарсенный JSON, строку или байты с JSON, а также типизированные документы обоих форматов.
func (n *Normalizer) Normalize(content any) *tiptap.Document {
	switch c := content.(type) {
	case nil:
		return nil
	case *tiptap.Document:
		if c == nil {
			return nil
		}
		return c
	case tiptap.Document:
		return &c
	case *lexical.Document:
		if c == nil {
			return nil
		}
		return n.fromLexical(c)
	case lexical.Document:
		return n.fromLexical(c)
	case json.RawMessage:
		if c == nil {
			return nil
		}
		return n.fromString(string(c))
	case []byte:
		if c == nil {
			return nil
		}
		return n.fromString(string(c))
	case string:
		return n.fromString(c)
	}

	return n.fromValue(content)
}

func (n *Normalizer) fromString(s string) *tiptap.Document {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		// Не JSON, сохраняем как простой текст
		return tiptap.TextDocument(s)
	}
	if v == nil {
		return nil
	}
	return n.fromValue(v)
}

func (n *Normalizer) fromValue(v any) *tiptap.Document {
	switch DetectFormat(v) {
	case FormatTipTap:
		doc, err := tiptap.FromValue(v)
		if err != nil {
			n.log.Warn("Failed to decode tiptap document, using empty document", "err", err)
			return tiptap.EmptyDocument()
		}
		return doc
	case FormatLexical:
		return n.fromLexical(v)
	}

	n.log.Warn("Unknown document format", "type", fmt.Sprintf("%T", v))
	return nil
}

func (n *Normalizer) fromLexical(v any) (doc *tiptap.Document) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Warn("Lexical conversion panic, using empty document", "panic", r)
			doc = tiptap.EmptyDocument()
		}
	}()

	root, err := lexical.DecodeRoot(v)
	if err != nil {
		n.log.Warn("Failed to decode lexical document, using empty document", "err", err)
		return tiptap.EmptyDocument()
	}

	nodes := lexical.Convert(*root)
	if len(nodes) == 1 && nodes[0].Type == tiptap.NodeDoc {
		return &tiptap.Document{Type: tiptap.NodeDoc, Content: nodes[0].Content}
	}
	// Корень сконвертировался не в doc
	return &tiptap.Document{Type: tiptap.NodeDoc, Content: nodes}
}
