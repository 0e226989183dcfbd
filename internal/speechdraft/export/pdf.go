package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"codeberg.org/go-pdf/fpdf"
	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/tiptap"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

const (
	fontFamily     = "Helvetica"
	monoFontFamily = "Courier"

	// Крупный кегль, чтобы речь было удобно читать с листа
	bodyFontSize  = 16
	titleFontSize = 26
	lineSpacing   = 1.5
	listIndent    = 8.0
	quoteIndent   = 5.0
)

var headingFontSizes = [...]float64{24, 21, 19, 18, 17, 16}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string

	defaultMargins Margins
}

type Margins struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

func (m *Margins) GetMargins(pdf fpdf.Pdf) {
	m.Left, m.Top, m.Right, m.Bottom = pdf.GetMargins()
}

// ToPDF пишет речь в PDF формата A4. Используются встроенные шрифты,
// символы вне cp1252 заменяются.
func ToPDF(title string, doc *tiptap.Document, out io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "") // 210*297 mm

	w := pdfWriter{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
	w.defaultMargins.GetMargins(pdf)

	pdf.SetTitle(title, true)
	pdf.SetCreator("SpeechDraft", true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(fontFamily, "I", 9)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	if title != "" {
		pdf.SetFont(fontFamily, "B", titleFontSize)
		pdf.SetTextColor(0, 0, 0)
		w.write(title)
		pdf.Ln(-1)
		pdf.Ln(6)
	}

	if doc != nil {
		for _, node := range doc.Content {
			w.writeBlock(node)
			w.resetMargins()
		}
	}

	return pdf.Output(out)
}

func (w *pdfWriter) writeBlocks(nodes []tiptap.Node) {
	for _, node := range nodes {
		w.writeBlock(node)
	}
}

func (w *pdfWriter) writeBlock(node tiptap.Node) {
	switch node.Type {
	case tiptap.NodeParagraph:
		w.writeInline(node.Content, "", bodyFontSize)
		w.pdf.Ln(-1)
		w.pdf.Ln(3)
	case tiptap.NodeBlockquote:
		w.writeQuote(node)
	case tiptap.NodeHeading:
		level := min(max(node.AttrInt("level"), 1), len(headingFontSizes))
		w.pdf.Ln(2)
		w.writeInline(node.Content, "B", headingFontSizes[level-1])
		w.pdf.Ln(-1)
		w.pdf.Ln(3)
	case tiptap.NodeBulletList, tiptap.NodeOrderedList:
		w.writeList(node)
	case tiptap.NodeCodeBlock:
		w.pdf.SetFont(monoFontFamily, "", bodyFontSize-3)
		w.pdf.SetTextColor(0, 0, 0)
		w.write(tiptap.InlineText(node))
		w.pdf.Ln(-1)
		w.pdf.Ln(3)
	default:
		w.writeBlocks(node.Content)
	}
}

func (w *pdfWriter) writeQuote(quote tiptap.Node) {
	w.pdf.Ln(2)
	left := w.currentLeft()
	y1 := w.pdf.GetY()
	w.pdf.SetLeftMargin(left + quoteIndent)
	w.pdf.SetX(left + quoteIndent)
	if len(quote.Content) > 0 && tiptap.IsInline(quote.Content[0]) {
		w.writeInline(quote.Content, "I", bodyFontSize)
		w.pdf.Ln(-1)
	} else {
		w.writeBlocks(quote.Content)
	}
	w.pdf.SetLeftMargin(left)

	w.pdf.SetLineWidth(0.5)
	w.pdf.SetDrawColor(74, 71, 82)
	w.pdf.Line(left+1, y1, left+1, w.pdf.GetY())
	w.pdf.Ln(4)
}

func (w *pdfWriter) writeList(list tiptap.Node) {
	left := w.currentLeft()
	for i, item := range list.Content {
		w.pdf.SetFont(fontFamily, "", bodyFontSize)
		w.pdf.SetTextColor(0, 0, 0)
		w.pdf.SetX(left)
		if list.Type == tiptap.NodeOrderedList {
			w.write(fmt.Sprintf("%d.", i+1))
		} else {
			w.write("•")
		}

		w.pdf.SetLeftMargin(left + listIndent)
		w.pdf.SetX(left + listIndent)
		w.writeBlocks(item.Content)
		w.pdf.SetLeftMargin(left)
	}
}

func (w *pdfWriter) writeInline(nodes []tiptap.Node, baseStyle string, size float64) {
	for _, node := range nodes {
		switch node.Type {
		case tiptap.NodeText:
			w.pdf.SetFont(fontFamily, textStyle(node, baseStyle), size)
			if href := node.Link(); href != "" {
				w.pdf.SetTextColor(30, 80, 200)
				w.write(node.Text, href)
			} else {
				w.pdf.SetTextColor(0, 0, 0)
				w.write(node.Text)
			}
		case tiptap.NodeHardBreak:
			w.pdf.Ln(-1)
		default:
			w.writeInline(node.Content, baseStyle, size)
		}
	}
}

func textStyle(node tiptap.Node, base string) string {
	style := base
	if node.HasMark(tiptap.MarkBold) && !strings.Contains(style, "B") {
		style += "B"
	}
	if node.HasMark(tiptap.MarkItalic) {
		style += "I"
	}
	if node.HasMark(tiptap.MarkUnderline) || node.Link() != "" {
		style += "U"
	}
	return style
}

func (w *pdfWriter) write(text string, link ...string) {
	_, s := w.pdf.GetFontSize()
	h := s * lineSpacing
	if len(link) > 0 {
		w.pdf.WriteLinkString(h, w.tr(text), link[0])
		return
	}
	w.pdf.Write(h, w.tr(text))
}

func (w *pdfWriter) resetMargins() {
	w.pdf.SetLeftMargin(w.defaultMargins.Left)
	w.pdf.SetRightMargin(w.defaultMargins.Right)
}

func (w *pdfWriter) currentLeft() float64 {
	l, _, _, _ := w.pdf.GetMargins()
	return l
}
