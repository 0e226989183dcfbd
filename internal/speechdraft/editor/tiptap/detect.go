package tiptap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var ErrInvalidDocument = errors.New("invalid tiptap document")

// IsDocument проверяет, что значение является документом TipTap:
// объект с type == "doc" и массивом content. Отсутствующий или не массив content не подходит.
func IsDocument(v any) bool {
	switch d := v.(type) {
	case map[string]any:
		if t, ok := d["type"].(string); !ok || t != NodeDoc {
			return false
		}
		_, ok := d["content"].([]any)
		return ok
	case Document:
		return d.Type == NodeDoc
	case *Document:
		return d != nil && d.Type == NodeDoc
	}
	return false
}

// FromValue преобразует распарсенный JSON документа TipTap в структуру Document.
// Поля и ноды, которые сервис не понимает, сохраняются, и документ записывается обратно без изменений.
func FromValue(v any) (*Document, error) {
	switch d := v.(type) {
	case Document:
		return &d, nil
	case *Document:
		return d, nil
	}

	if !IsDocument(v) {
		return nil, ErrInvalidDocument
	}
	return documentFromMap(v.(map[string]any)), nil
}

// ParseJSON парсит JSON контент TipTap редактора и проверяет его структуру.
func ParseJSON(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate проверяет структурные правила документа: корень doc,
// у каждой ноды есть тип, текстовые ноды не пустые, элемент списка оборачивает параграф.
func Validate(doc *Document) error {
	if doc == nil || doc.Type != NodeDoc {
		return fmt.Errorf("%w: root must be %q", ErrInvalidDocument, NodeDoc)
	}
	for i, node := range doc.Content {
		if err := validateNode(node, fmt.Sprintf("content[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(node Node, path string) error {
	switch node.Type {
	case "":
		return fmt.Errorf("%w: %s has no type", ErrInvalidDocument, path)
	case NodeDoc:
		return fmt.Errorf("%w: %s nested doc", ErrInvalidDocument, path)
	case NodeText:
		if node.Text == "" {
			return fmt.Errorf("%w: %s empty text node", ErrInvalidDocument, path)
		}
		if len(node.Content) > 0 {
			return fmt.Errorf("%w: %s text node with content", ErrInvalidDocument, path)
		}
	case NodeListItem:
		if len(node.Content) == 0 || node.Content[0].Type != NodeParagraph {
			return fmt.Errorf("%w: %s list item must start with paragraph", ErrInvalidDocument, path)
		}
	}

	for i, child := range node.Content {
		if err := validateNode(child, fmt.Sprintf("%s.content[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}
