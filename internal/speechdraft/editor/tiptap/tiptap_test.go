package tiptap

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDocument(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"doc with content", `{"type":"doc","content":[]}`, true},
		{"doc with nodes", `{"type":"doc","content":[{"type":"paragraph"}]}`, true},
		{"missing content", `{"type":"doc"}`, false},
		{"content not array", `{"type":"doc","content":{}}`, false},
		{"content null", `{"type":"doc","content":null}`, false},
		{"other type", `{"type":"paragraph","content":[]}`, false},
		{"lexical", `{"root":{"type":"root"}}`, false},
		{"array", `[]`, false},
		{"string", `"doc"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v any
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &v))
			assert.Equal(t, tt.want, IsDocument(v))
		})
	}

	assert.True(t, IsDocument(EmptyDocument()))
	assert.True(t, IsDocument(*EmptyDocument()))
	assert.False(t, IsDocument((*Document)(nil)))
}

func TestFromValue(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{"type":"doc","content":[{"type":"heading","attrs":{"level":2},"content":[{"type":"text","text":"Hi","marks":[{"type":"link","attrs":{"href":"https://x"}}]}]}]}`), &v))

	doc, err := FromValue(v)
	require.NoError(t, err)
	require.Len(t, doc.Content, 1)
	assert.Equal(t, 2, doc.Content[0].AttrInt("level"))
	assert.Equal(t, "https://x", doc.Content[0].Content[0].Link())

	_, err = FromValue(map[string]any{"foo": "bar"})
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestFromValueStoredFields(t *testing.T) {
	var v any
	require.NoError(t, json.Unmarshal([]byte(`{"type":"doc","attrs":{"lang":"en"},"meta":1,"content":[
		{"type":"paragraph","content":[{"type":"text","text":5},{"type":"text","text":"ok"}]}
	]}`), &v))

	doc, err := FromValue(v)
	require.NoError(t, err)
	assert.Equal(t, "en", doc.Attrs["lang"])
	assert.Equal(t, float64(1), doc.Extra["meta"])
	require.Len(t, doc.Content[0].Content, 2)
	assert.Equal(t, float64(5), doc.Content[0].Content[0].Extra["text"])
	assert.Equal(t, "ok", PlainText(doc))

	// Типизированное поле заменяет сохраненное значение
	doc.Content[0].Content[0].Text = "five"
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"doc","attrs":{"lang":"en"},"meta":1,"content":[
		{"type":"paragraph","content":[{"type":"text","text":"five"},{"type":"text","text":"ok"}]}
	]}`, string(data))
}

func TestDocumentMarshal(t *testing.T) {
	data, err := json.Marshal(Document{Type: NodeDoc})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"doc","content":[]}`, string(data))

	data, err = json.Marshal(EmptyDocument())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"doc","content":[{"type":"paragraph"}]}`, string(data))

	data, err = json.Marshal(TextDocument("not json {"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"not json {"}]}]}`, string(data))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"a"}]}]}`, false},
		{"empty", `{"type":"doc","content":[]}`, false},
		{"wrong root", `{"type":"paragraph","content":[]}`, true},
		{"node without type", `{"type":"doc","content":[{"content":[]}]}`, true},
		{"empty text", `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":""}]}]}`, true},
		{"nested doc", `{"type":"doc","content":[{"type":"doc"}]}`, true},
		{"list item without paragraph", `{"type":"doc","content":[{"type":"bulletList","content":[{"type":"listItem","content":[{"type":"text","text":"a"}]}]}]}`, true},
		{"list item with paragraph", `{"type":"doc","content":[{"type":"bulletList","content":[{"type":"listItem","content":[{"type":"paragraph"}]}]}]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON(strings.NewReader(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDocument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	raw := `{"type":"doc","content":[
		{"type":"heading","attrs":{"level":1},"content":[{"type":"text","text":"Toast"}]},
		{"type":"paragraph","content":[{"type":"text","text":"Line one"},{"type":"hardBreak"},{"type":"text","text":"line two","marks":[{"type":"bold"}]}]},
		{"type":"bulletList","content":[
			{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"first"}]}]},
			{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"second"}]}]}
		]},
		{"type":"blockquote","content":[{"type":"paragraph","content":[{"type":"text","text":"quoted"}]}]},
		{"type":"paragraph"}
	]}`

	doc, err := ParseJSON(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Toast\nLine one\nline two\nfirst\nsecond\nquoted", PlainText(doc))
	assert.Equal(t, "Line one\nline two", InlineText(doc.Content[1]))
	assert.Equal(t, "", PlainText(nil))
}

func TestPlainTextInlineQuote(t *testing.T) {
	doc := &Document{Type: NodeDoc, Content: []Node{
		{Type: NodeBlockquote, Content: []Node{{Type: NodeText, Text: "Love is patient"}}},
		{Type: NodeParagraph, Content: []Node{{Type: NodeText, Text: "Cheers"}}},
	}}

	assert.Equal(t, "Love is patient\nCheers", PlainText(doc))
	assert.True(t, IsInline(doc.Content[0].Content[0]))
	assert.False(t, IsInline(doc.Content[1]))
}
