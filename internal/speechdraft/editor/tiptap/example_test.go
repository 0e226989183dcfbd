package tiptap_test

import (
	"fmt"
	"strings"

	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/tiptap"
)

func ExampleParseJSON() {
	speech := `{"type":"doc","content":[
		{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"To the couple"}]},
		{"type":"blockquote","content":[{"type":"text","marks":[{"type":"italic"}],"text":"Love is patient"}]}
	]}`

	doc, err := tiptap.ParseJSON(strings.NewReader(speech))
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println(doc.Content[0].AttrInt("level"))
	fmt.Println(tiptap.PlainText(doc))

	// Output:
	// 2
	// To the couple
	// Love is patient
}
