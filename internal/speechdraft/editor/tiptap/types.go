// Пакет tiptap описывает JSON-формат документов редактора TipTap (модель документа ProseMirror).
// В этом формате хранятся и редактируются тексты речей.
package tiptap

import "encoding/json"

// Типы нод, которые создает и понимает сервис.
const (
	NodeDoc         = "doc"
	NodeParagraph   = "paragraph"
	NodeHeading     = "heading"
	NodeBulletList  = "bulletList"
	NodeOrderedList = "orderedList"
	NodeListItem    = "listItem"
	NodeText        = "text"
	NodeHardBreak   = "hardBreak"
	NodeBlockquote  = "blockquote"
	NodeCodeBlock   = "codeBlock"
)

// Document представляет корневой документ TipTap.
type Document struct {
	Type    string                 `json:"type"`
	Attrs   map[string]interface{} `json:"attrs,omitempty"`
	Content []Node                 `json:"content"`

	// Extra поля сохраненного документа, которые сервис не разбирает. Пишутся обратно как есть.
	Extra map[string]interface{} `json:"-"`
}

// MarshalJSON всегда пишет content массивом, иначе документ перестанет определяться как TipTap.
func (d Document) MarshalJSON() ([]byte, error) {
	type document Document
	if d.Content == nil {
		d.Content = []Node{}
	}
	if len(d.Extra) == 0 {
		return json.Marshal(document(d))
	}

	out := make(map[string]interface{}, len(d.Extra)+3)
	for k, v := range d.Extra {
		out[k] = v
	}
	out["type"] = d.Type
	out["content"] = d.Content
	if d.Attrs != nil {
		out["attrs"] = d.Attrs
	}
	return json.Marshal(out)
}

// Node представляет узел в дереве документа TipTap.
// Используется универсальная структура с map для атрибутов для поддержки различных типов нод.
type Node struct {
	Type    string                 `json:"type"`
	Attrs   map[string]interface{} `json:"attrs,omitempty"`
	Content []Node                 `json:"content,omitempty"`
	Marks   []Mark                 `json:"marks,omitempty"`
	Text    string                 `json:"text,omitempty"`

	// Extra поля сохраненной ноды, которые не легли в типизированные поля: неизвестные ключи,
	// значения другого типа, пустые content и attrs. Типизированное поле, если задано, важнее.
	Extra map[string]interface{} `json:"-"`

	// opaque элемент content, который не является объектом
	opaque interface{}
}

func (n Node) MarshalJSON() ([]byte, error) {
	type node Node
	if n.opaque != nil {
		return json.Marshal(n.opaque)
	}
	if len(n.Extra) == 0 {
		return json.Marshal(node(n))
	}

	out := make(map[string]interface{}, len(n.Extra)+5)
	for k, v := range n.Extra {
		out[k] = v
	}
	if _, ok := out["type"]; !ok || n.Type != "" {
		out["type"] = n.Type
	}
	if len(n.Attrs) > 0 {
		out["attrs"] = n.Attrs
	}
	if len(n.Content) > 0 {
		out["content"] = n.Content
	}
	if len(n.Marks) > 0 {
		out["marks"] = n.Marks
	}
	if n.Text != "" {
		out["text"] = n.Text
	}
	return json.Marshal(out)
}

// Mark представляет форматирование текста (bold, italic, link и т.д.).
type Mark struct {
	Type  string                 `json:"type"`
	Attrs map[string]interface{} `json:"attrs,omitempty"`
}

// EmptyDocument возвращает документ с одним пустым параграфом.
func EmptyDocument() *Document {
	return &Document{
		Type:    NodeDoc,
		Content: []Node{{Type: NodeParagraph}},
	}
}

// TextDocument оборачивает простой текст в документ из одного параграфа.
func TextDocument(text string) *Document {
	if text == "" {
		return EmptyDocument()
	}
	return &Document{
		Type: NodeDoc,
		Content: []Node{{
			Type:    NodeParagraph,
			Content: []Node{{Type: NodeText, Text: text}},
		}},
	}
}
