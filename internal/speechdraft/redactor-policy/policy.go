// Политики очистки пользовательского контента.
//
// Основные возможности:
//   - StripTagsPolicy удаляет всю разметку (ответы анкет, названия, имена).
//   - EmailPolicy оставляет безопасную разметку писем.
//   - LinkPolicy проверяет адреса ссылок в тексте речи: допускаются http, https и mailto.
package policy

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var StripTagsPolicy *bluemonday.Policy = bluemonday.StrictPolicy()
var EmailPolicy *bluemonday.Policy = bluemonday.UGCPolicy()
var LinkPolicy *bluemonday.Policy = bluemonday.NewPolicy()

func init() {
	EmailPolicy.AllowAttrs("style").OnElements("p", "a", "div", "span", "td")
	EmailPolicy.AllowStyles("color", "background-color", "font-size", "font-weight", "padding", "margin", "text-align").Globally()

	LinkPolicy.AllowURLSchemes("http", "https", "mailto")
	LinkPolicy.RequireParseableURLs(true)
	LinkPolicy.AllowAttrs("href").OnElements("a")
}

var invisibleChars = strings.NewReplacer(
	"\u200B", "",
	"\u200C", "",
	"\u200D", "",
	"\uFEFF", "",
)

// RemoveInvisibleChars удаляет символы нулевой ширины.
func RemoveInvisibleChars(s string) string {
	return invisibleChars.Replace(s)
}

// StripTags возвращает текст без разметки. HTML-сущности раскрываются обратно, так как результат хранится как простой текст.
func StripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(RemoveInvisibleChars(StripTagsPolicy.Sanitize(s))))
}

// SafeHref возвращает адрес, если он проходит LinkPolicy, иначе пустую строку.
func SafeHref(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	out := LinkPolicy.Sanitize(`<a href="` + html.EscapeString(href) + `">x</a>`)
	if !strings.Contains(out, "href=") {
		return ""
	}
	return href
}
