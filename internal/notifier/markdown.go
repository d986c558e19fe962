package notifier

import "strings"

// Characters reserved by Telegram MarkdownV2.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`,
	"(", `\(`, ")", `\)`, "~", `\~`, "`", "\\`",
	">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`,
	".", `\.`, "!", `\!`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// fitEscaped escapes s and cuts it so the escaped result is at most budget
// runes, ending with an ellipsis when anything was dropped. Cutting happens
// on the raw text so an escape sequence is never split.
func fitEscaped(s string, budget int) string {
	escaped := escapeMarkdown(s)
	if len([]rune(escaped)) <= budget {
		return escaped
	}

	ellipsis := escapeMarkdown("...")
	budget -= len([]rune(ellipsis))

	var (
		sb   strings.Builder
		used int
	)
	for _, r := range s {
		chunk := escapeMarkdown(string(r))
		n := len([]rune(chunk))
		if used+n > budget {
			break
		}
		sb.WriteString(chunk)
		used += n
	}

	return sb.String() + ellipsis
}
