package tiptap

import "encoding/json"

// documentFromMap собирает документ из распарсенного JSON без потерь: все, что не легло
// в типизированные поля, остается в Extra и при сохранении пишется обратно.
func documentFromMap(m map[string]interface{}) *Document {
	doc := &Document{Type: NodeDoc}
	for k, v := range m {
		switch k {
		case "type":
			// проверен в IsDocument
		case "content":
			items, _ := v.([]interface{})
			doc.Content = make([]Node, 0, len(items))
			for _, item := range items {
				doc.Content = append(doc.Content, nodeFromValue(item))
			}
		case "attrs":
			if attrs, ok := v.(map[string]interface{}); ok && len(attrs) > 0 {
				doc.Attrs = attrs
			} else {
				doc.setExtra(k, v)
			}
		default:
			doc.setExtra(k, v)
		}
	}
	return doc
}

func nodeFromValue(v interface{}) Node {
	m, ok := v.(map[string]interface{})
	if !ok {
		if v == nil {
			return Node{opaque: json.RawMessage("null")}
		}
		return Node{opaque: v}
	}
	if _, ok := m["type"]; !ok {
		return Node{opaque: m}
	}

	var n Node
	for k, v := range m {
		switch k {
		case "type":
			if t, ok := v.(string); ok && t != "" {
				n.Type = t
				continue
			}
		case "text":
			if t, ok := v.(string); ok && t != "" {
				n.Text = t
				continue
			}
		case "attrs":
			if attrs, ok := v.(map[string]interface{}); ok && len(attrs) > 0 {
				n.Attrs = attrs
				continue
			}
		case "content":
			if items, ok := v.([]interface{}); ok && len(items) > 0 {
				n.Content = make([]Node, 0, len(items))
				for _, item := range items {
					n.Content = append(n.Content, nodeFromValue(item))
				}
				continue
			}
		case "marks":
			if marks, ok := marksFromValue(v); ok {
				n.Marks = marks
				continue
			}
		}
		n.setExtra(k, v)
	}
	return n
}

// marksFromValue разбирает метки, только если каждую можно записать обратно без изменений.
func marksFromValue(v interface{}) ([]Mark, bool) {
	items, ok := v.([]interface{})
	if !ok || len(items) == 0 {
		return nil, false
	}

	marks := make([]Mark, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, false
		}
		t, ok := m["type"].(string)
		if !ok {
			return nil, false
		}
		mark := Mark{Type: t}
		for k, v := range m {
			switch k {
			case "type":
			case "attrs":
				attrs, ok := v.(map[string]interface{})
				if !ok || len(attrs) == 0 {
					return nil, false
				}
				mark.Attrs = attrs
			default:
				return nil, false
			}
		}
		marks = append(marks, mark)
	}
	return marks, true
}

func (n *Node) setExtra(k string, v interface{}) {
	if n.Extra == nil {
		n.Extra = map[string]interface{}{}
	}
	n.Extra[k] = v
}

func (d *Document) setExtra(k string, v interface{}) {
	if d.Extra == nil {
		d.Extra = map[string]interface{}{}
	}
	d.Extra[k] = v
}
