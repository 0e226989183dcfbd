// Пакет для экспорта текста речи в Markdown и PDF.
//
// Основные возможности:
//   - Markdown с заголовками, списками, цитатами и блоками кода.
//   - PDF с крупным шрифтом для чтения с листа.
//   - Поддержка стилизации текста (жирный, курсив, подчеркнутый) и ссылок.
package export

import (
	"io"
	"strings"

	md "github.com/nao1215/markdown"
	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/tiptap"
)

// Форматы экспорта
const (
	FormatMarkdown = "md"
	FormatPDF      = "pdf"
)

// ContentType возвращает MIME тип формата экспорта.
func ContentType(format string) string {
	switch format {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	}
	return ""
}

// Write пишет документ в указанном формате. Неизвестный формат возвращает ErrUnsupportedFormat.
func Write(format string, title string, doc *tiptap.Document, w io.Writer) error {
	switch format {
	case FormatMarkdown:
		return ToMarkdown(title, doc, w)
	case FormatPDF:
		return ToPDF(title, doc, w)
	}
	return ErrUnsupportedFormat
}

func ToMarkdown(title string, doc *tiptap.Document, w io.Writer) error {
	m := md.NewMarkdown(w)
	if title != "" {
		m.H1(title)
		m.PlainText("")
	}

	if doc != nil {
		for _, node := range doc.Content {
			if writeMarkdownBlock(m, node) {
				m.PlainText("")
			}
		}
	}
	return m.Build()
}

func writeMarkdownBlock(m *md.Markdown, node tiptap.Node) bool {
	switch node.Type {
	case tiptap.NodeParagraph:
		text := markdownInline(node)
		if text == "" {
			return false
		}
		m.PlainText(text)
	case tiptap.NodeHeading:
		text := markdownInline(node)
		switch node.AttrInt("level") {
		case 1:
			m.H1(text)
		case 2:
			m.H2(text)
		case 3:
			m.H3(text)
		case 4:
			m.H4(text)
		case 5:
			m.H5(text)
		default:
			m.H6(text)
		}
	case tiptap.NodeBulletList:
		m.BulletList(markdownListItems(node)...)
	case tiptap.NodeOrderedList:
		m.OrderedList(markdownListItems(node)...)
	case tiptap.NodeBlockquote:
		var lines []string
		if len(node.Content) > 0 && tiptap.IsInline(node.Content[0]) {
			lines = append(lines, markdownInline(node))
		} else {
			for _, child := range node.Content {
				if text := markdownInline(child); text != "" {
					lines = append(lines, text)
				}
			}
		}
		if len(lines) == 0 {
			return false
		}
		m.Blockquote(strings.Join(lines, "\n"))
	case tiptap.NodeCodeBlock:
		m.CodeBlocks(md.SyntaxHighlight(node.AttrString("language")), tiptap.InlineText(node))
	default:
		if len(node.Content) == 0 {
			return false
		}
		for _, child := range node.Content {
			writeMarkdownBlock(m, child)
		}
	}
	return true
}

func markdownListItems(list tiptap.Node) []string {
	items := make([]string, 0, len(list.Content))
	for _, item := range list.Content {
		var parts []string
		for _, p := range item.Content {
			if text := markdownInline(p); text != "" {
				parts = append(parts, text)
			}
		}
		items = append(items, strings.Join(parts, " "))
	}
	return items
}

func markdownInline(node tiptap.Node) string {
	var b strings.Builder
	for _, child := range node.Content {
		switch child.Type {
		case tiptap.NodeText:
			b.WriteString(markdownText(child))
		case tiptap.NodeHardBreak:
			b.WriteString("  \n")
		default:
			b.WriteString(markdownInline(child))
		}
	}
	return b.String()
}

func markdownText(node tiptap.Node) string {
	text := node.Text
	if strings.TrimSpace(text) == "" {
		return text
	}

	bold := node.HasMark(tiptap.MarkBold)
	italic := node.HasMark(tiptap.MarkItalic)
	switch {
	case bold && italic:
		text = md.BoldItalic(text)
	case bold:
		text = md.Bold(text)
	case italic:
		text = md.Italic(text)
	}
	if node.HasMark(tiptap.MarkUnderline) {
		text = "<u>" + text + "</u>"
	}
	if href := node.Link(); href != "" {
		text = md.Link(text, href)
	}
	return text
}
