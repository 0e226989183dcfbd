package tiptap

// Типы меток форматирования текста.
const (
	MarkBold      = "bold"
	MarkItalic    = "italic"
	MarkUnderline = "underline"
	MarkLink      = "link"
)

// LinkMark создает метку ссылки с указанным адресом.
func LinkMark(href string) Mark {
	return Mark{
		Type:  MarkLink,
		Attrs: map[string]interface{}{"href": href},
	}
}

// HasMark проверяет наличие метки указанного типа у ноды.
func (n Node) HasMark(markType string) bool {
	for _, m := range n.Marks {
		if m.Type == markType {
			return true
		}
	}
	return false
}

// Link возвращает адрес ссылки из метки link или пустую строку.
func (n Node) Link() string {
	for _, m := range n.Marks {
		if m.Type == MarkLink {
			return m.AttrString("href")
		}
	}
	return ""
}
