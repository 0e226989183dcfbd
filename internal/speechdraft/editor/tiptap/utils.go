package tiptap

// getAttrString безопасно извлекает строковый атрибут из map.
func getAttrString(attrs map[string]interface{}, key string) string {
	if attrs == nil {
		return ""
	}
	val, ok := attrs[key]
	if !ok {
		return ""
	}
	str, ok := val.(string)
	if !ok {
		return ""
	}
	return str
}

// getAttrInt безопасно извлекает целочисленный атрибут из map.
func getAttrInt(attrs map[string]interface{}, key string) int {
	if attrs == nil {
		return 0
	}
	val, ok := attrs[key]
	if !ok {
		return 0
	}

	// Может быть float64 из JSON
	if f, ok := val.(float64); ok {
		return int(f)
	}

	// Может быть int
	if i, ok := val.(int); ok {
		return i
	}

	return 0
}

// AttrString возвращает строковый атрибут ноды или пустую строку.
func (n Node) AttrString(key string) string {
	return getAttrString(n.Attrs, key)
}

// AttrInt возвращает числовой атрибут ноды или 0.
func (n Node) AttrInt(key string) int {
	return getAttrInt(n.Attrs, key)
}

// AttrString возвращает строковый атрибут метки или пустую строку.
func (m Mark) AttrString(key string) string {
	return getAttrString(m.Attrs, key)
}
