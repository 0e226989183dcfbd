package tiptap

import "strings"

// PlainText извлекает текст документа без форматирования.
// Блоки разделяются переводом строки, hardBreak тоже превращается в перевод строки.
func PlainText(doc *Document) string {
	if doc == nil {
		return ""
	}

	var b strings.Builder
	for _, node := range doc.Content {
		writeNodeText(&b, node)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeNodeText(b *strings.Builder, node Node) {
	switch node.Type {
	case NodeText:
		b.WriteString(node.Text)
	case NodeHardBreak:
		b.WriteByte('\n')
	case NodeParagraph, NodeHeading, NodeCodeBlock:
		for _, child := range node.Content {
			writeNodeText(b, child)
		}
		b.WriteByte('\n')
	default:
		// Контейнеры: списки, элементы списков, цитаты.
		// Цитата из Lexical может содержать текст без параграфа.
		for _, child := range node.Content {
			writeNodeText(b, child)
		}
		if s := b.String(); len(s) > 0 && s[len(s)-1] != '\n' {
			b.WriteByte('\n')
		}
	}
}

// IsInline сообщает, что нода является inline-содержимым блока.
func IsInline(node Node) bool {
	return node.Type == NodeText || node.Type == NodeHardBreak
}

// InlineText возвращает текст inline-содержимого ноды (параграфа, заголовка, элемента списка).
func InlineText(node Node) string {
	var b strings.Builder
	for _, child := range node.Content {
		writeNodeText(&b, child)
	}
	return strings.TrimRight(b.String(), "\n")
}
