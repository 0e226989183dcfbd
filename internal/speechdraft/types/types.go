// Типы колонок базы данных и JSON-полей API.
//
// Основные возможности:
//   - SpeechContent хранит текст речи в JSON и при чтении из базы приводит его к формату TipTap.
//   - StringList хранит список строк в JSON, при разборе из запроса строки очищаются от разметки.
//   - Date хранит календарную дату без времени (формат 2006-01-02).
package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/speechdraft/speechdraft/internal/speechdraft/editor"
	"github.com/speechdraft/speechdraft/internal/speechdraft/editor/tiptap"
	policy "github.com/speechdraft/speechdraft/internal/speechdraft/redactor-policy"
)

var ErrUnsupportedValue = errors.New("unsupported column value")

// SpeechContent type
type SpeechContent struct {
	Doc *tiptap.Document

	// Формат, в котором документ лежал в базе до нормализации
	SourceFormat editor.Format
}

// Value сохраняет документ в формате TipTap. Пустой документ сохраняется как NULL.
func (sc SpeechContent) Value() (driver.Value, error) {
	if sc.Doc == nil {
		return nil, nil
	}
	b, err := json.Marshal(sc.Doc)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan читает сохраненный JSON любого поддерживаемого формата и нормализует его.
func (sc *SpeechContent) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*sc = SpeechContent{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// В колонке лежит не JSON, нормализатор сохранит его как текст
		parsed = string(raw)
	}

	sc.SourceFormat = editor.DetectFormat(parsed)
	if s, ok := parsed.(string); ok {
		var inner any
		if json.Unmarshal([]byte(s), &inner) == nil {
			sc.SourceFormat = editor.DetectFormat(inner)
		}
	}
	sc.Doc = editor.Normalize(parsed)
	return nil
}

func (sc SpeechContent) MarshalJSON() ([]byte, error) {
	if sc.Doc == nil {
		return []byte("null"), nil
	}
	return json.Marshal(sc.Doc)
}

// UnmarshalJSON принимает из API только документ TipTap.
func (sc *SpeechContent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*sc = SpeechContent{}
		return nil
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	if !tiptap.IsDocument(parsed) {
		return tiptap.ErrInvalidDocument
	}

	var doc tiptap.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*sc = SpeechContent{Doc: &doc, SourceFormat: editor.FormatTipTap}
	return nil
}

func (SpeechContent) GormDataType() string {
	return "jsonb"
}

// StringList type
type StringList []string

func (sl StringList) Value() (driver.Value, error) {
	if sl == nil {
		sl = StringList{}
	}
	b, err := json.Marshal([]string(sl))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (sl *StringList) Scan(value interface{}) error {
	if value == nil {
		*sl = StringList{}
		return nil
	}

	var res []byte
	switch v := value.(type) {
	case []byte:
		res = v
	case string:
		res = []byte(v)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
	}

	var list []string
	if err := json.Unmarshal(res, &list); err != nil {
		return err
	}
	*sl = list
	return nil
}

// UnmarshalJSON очищает строки от разметки и невидимых символов.
func (sl *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	res := make(StringList, len(list))
	for i, s := range list {
		res[i] = policy.StripTags(s)
	}
	*sl = res
	return nil
}

func (StringList) GormDataType() string {
	return "jsonb"
}

// HasEmpty проверяет наличие пустых строк.
func (sl StringList) HasEmpty() bool {
	for _, s := range sl {
		if strings.TrimSpace(s) == "" {
			return true
		}
	}
	return false
}

const DateLayout = "2006-01-02"

// Date type
type Date struct {
	Time time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	if strings.Contains(s, "T") {
		s = strings.Split(s, "T")[0]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	parsed, err := ParseDate(str)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(d.Time.Format(`"` + DateLayout + `"`)), nil
}

func (d Date) Value() (driver.Value, error) {
	return d.Time.Format(DateLayout), nil
}

func (d *Date) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	return fmt.Errorf("%w: %T", ErrUnsupportedValue, value)
}

func (Date) GormDataType() string {
	return "date"
}

func (d Date) String() string {
	return d.Time.Format(DateLayout)
}
