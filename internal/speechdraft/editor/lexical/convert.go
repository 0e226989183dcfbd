package lexical

import "github.com/speechdraft/speechdraft/internal/speechdraft/editor/tiptap"

// Convert конвертирует ноду Lexical в ноль, одну или несколько нод TipTap.
// Несколько нод возвращает только ссылка, ее дети поднимаются в родителя.
// Неизвестный тип с детьми становится параграфом, без детей пропускается.
func Convert(node Node) []tiptap.Node {
	switch node.Type {
	case NodeRoot:
		return []tiptap.Node{{Type: tiptap.NodeDoc, Content: ConvertChildren(node.Children)}}

	case NodeParagraph:
		return []tiptap.Node{{Type: tiptap.NodeParagraph, Content: ConvertChildren(node.Children)}}

	case NodeHeading:
		return []tiptap.Node{{
			Type:    tiptap.NodeHeading,
			Attrs:   map[string]interface{}{"level": headingLevel(node.Tag)},
			Content: ConvertChildren(node.Children),
		}}

	case NodeList:
		listType := tiptap.NodeOrderedList
		if node.ListType == ListBullet {
			listType = tiptap.NodeBulletList
		}
		return []tiptap.Node{{Type: listType, Content: ConvertChildren(node.Children)}}

	case NodeListItem:
		// Элемент списка TipTap всегда оборачивает один параграф
		return []tiptap.Node{{
			Type:    tiptap.NodeListItem,
			Content: []tiptap.Node{{Type: tiptap.NodeParagraph, Content: ConvertChildren(node.Children)}},
		}}

	case NodeText:
		if node.Text == "" {
			return nil
		}
		return []tiptap.Node{{Type: tiptap.NodeText, Text: node.Text, Marks: Marks(node.Format)}}

	case NodeLineBreak:
		return []tiptap.Node{{Type: tiptap.NodeHardBreak}}

	case NodeQuote:
		return []tiptap.Node{{Type: tiptap.NodeBlockquote, Content: ConvertChildren(node.Children)}}

	case NodeCode:
		return []tiptap.Node{{Type: tiptap.NodeCodeBlock, Content: ConvertChildren(node.Children)}}

	case NodeLink:
		children := ConvertChildren(node.Children)
		for i := range children {
			children[i].Marks = append(children[i].Marks, tiptap.LinkMark(node.URL))
		}
		return children

	default:
		if node.Children == nil {
			return nil
		}
		return []tiptap.Node{{Type: tiptap.NodeParagraph, Content: ConvertChildren(node.Children)}}
	}
}

// ConvertChildren конвертирует детей с сохранением порядка, результаты склеиваются в один срез.
func ConvertChildren(children []Node) []tiptap.Node {
	var res []tiptap.Node
	for _, child := range children {
		res = append(res, Convert(child)...)
	}
	return res
}

// Marks переводит битовую маску в метки TipTap в порядке bold, italic, underline.
// Для маски без известных битов возвращает nil.
func Marks(format TextFormat) []tiptap.Mark {
	var marks []tiptap.Mark
	if format.Has(FormatBold) {
		marks = append(marks, tiptap.Mark{Type: tiptap.MarkBold})
	}
	if format.Has(FormatItalic) {
		marks = append(marks, tiptap.Mark{Type: tiptap.MarkItalic})
	}
	if format.Has(FormatUnderline) {
		marks = append(marks, tiptap.Mark{Type: tiptap.MarkUnderline})
	}
	return marks
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	}
	return 3
}
