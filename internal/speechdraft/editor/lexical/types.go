// Пакет lexical читает документы старого редактора (Lexical) и конвертирует их в формат TipTap.
//
// Документ Lexical хранится как {"root": {"type": "root", "children": [...]}}.
// Форматирование текста задается битовой маской: 1 - жирный, 2 - курсив, 8 - подчеркнутый.
package lexical

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Типы нод Lexical.
const (
	NodeRoot      = "root"
	NodeParagraph = "paragraph"
	NodeHeading   = "heading"
	NodeList      = "list"
	NodeListItem  = "listitem"
	NodeText      = "text"
	NodeLineBreak = "linebreak"
	NodeQuote     = "quote"
	NodeCode      = "code"
	NodeLink      = "link"
)

// Типы списков Lexical.
const (
	ListBullet = "bullet"
	ListNumber = "number"
)

var ErrMalformedNode = errors.New("malformed lexical node")

// TextFormat битовая маска форматирования текстовой ноды.
type TextFormat int

const (
	FormatBold      TextFormat = 1
	FormatItalic    TextFormat = 2
	FormatUnderline TextFormat = 8
)

func (f TextFormat) Has(flag TextFormat) bool {
	return f&flag != 0
}

// UnmarshalJSON принимает число. У нод-элементов Lexical format хранит строку выравнивания ("", "center"),
// такое значение к тексту не относится и читается как 0.
func (f *TextFormat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = TextFormat(int(n))
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = 0
		return nil
	}

	if string(data) == "null" {
		*f = 0
		return nil
	}
	return fmt.Errorf("%w: format %s", ErrMalformedNode, string(data))
}

// Document корневой объект документа Lexical.
type Document struct {
	Root Node `json:"root"`
}

// Node узел дерева Lexical. Поля, которые конвертер не использует (direction, indent, version), не читаются.
// Children == nil означает отсутствие поля, пустой срез означает пустой массив.
type Node struct {
	Type     string     `json:"type"`
	Children []Node     `json:"children,omitempty"`
	Text     string     `json:"text,omitempty"`
	Format   TextFormat `json:"format,omitempty"`
	Tag      string     `json:"tag,omitempty"`
	ListType string     `json:"listType,omitempty"`
	URL      string     `json:"url,omitempty"`
}

// IsDocument проверяет, что значение является документом Lexical: объект со свойством root, которое тоже объект.
func IsDocument(v any) bool {
	switch d := v.(type) {
	case map[string]any:
		_, ok := d["root"].(map[string]any)
		return ok
	case Document:
		return true
	case *Document:
		return d != nil
	}
	return false
}

// DecodeRoot извлекает корневую ноду из распарсенного JSON документа Lexical.
func DecodeRoot(v any) (*Node, error) {
	switch d := v.(type) {
	case Document:
		return &d.Root, nil
	case *Document:
		if d == nil {
			return nil, ErrMalformedNode
		}
		return &d.Root, nil
	}

	if !IsDocument(v) {
		return nil, fmt.Errorf("%w: no root object", ErrMalformedNode)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedNode, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedNode, err)
	}
	return &doc.Root, nil
}
