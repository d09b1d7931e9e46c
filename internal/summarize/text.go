package summarize

import (
	"regexp"
	"strings"
)

var (
	codeFenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\n?(.*?)```")
	htmlTagRe   = regexp.MustCompile(`<[^>]+>`)
	wordRe      = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// CleanOutput убирает обвязку, которую модель добавляет вокруг ответа:
// кодовые заборы, экранированные переводы строк, внешние кавычки.
func CleanOutput(s string) string {
	s = strings.TrimSpace(s)

	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = strings.TrimPrefix(s, "```html")
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	s = strings.ReplaceAll(s, "\\n", "\n")
	s = strings.ReplaceAll(s, "\\\"", "\"")

	return strings.TrimSpace(s)
}

// ExtractJSON вырезает первый JSON объект или массив из произвольного
// текста. Возвращает вход как есть, если скобок не нашлось.
func ExtractJSON(s string) string {
	start := -1
	var open, close byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			open = s[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start < 0 {
		return s
	}

	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}

// ExtractHTML вырезает вероятный HTML фрагмент: от первого '<' до
// последнего '>'. Если угловых скобок нет, строка возвращается как есть.
func ExtractHTML(s string) string {
	first := strings.Index(s, "<")
	last := strings.LastIndex(s, ">")
	if first != -1 && last > first {
		return s[first : last+1]
	}
	return s
}

func stripHTML(s string) string {
	return htmlTagRe.ReplaceAllString(s, " ")
}

func wordSet(s string) map[string]struct{} {
	words := wordRe.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// JaccardScore measures word-set overlap between the source text and the
// summary (HTML stripped), in [0,1].
func JaccardScore(source, summaryHTML string) float64 {
	a := wordSet(source)
	b := wordSet(stripHTML(summaryHTML))
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
