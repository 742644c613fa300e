package inspect

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// TokenClass is the styling class of a highlighted token.
type TokenClass string

const (
	TokenKey      TokenClass = "json-key"
	TokenString   TokenClass = "json-string"
	TokenNumber   TokenClass = "json-number"
	TokenBoolean  TokenClass = "json-boolean"
	TokenNull     TokenClass = "json-null"
	TokenBracket  TokenClass = "json-bracket"
	TokenFunction TokenClass = "json-function"
	TokenAccessor TokenClass = "json-accessor"
	TokenPlain    TokenClass = "plain"
)

// Token is a classified run of text within a line.
type Token struct {
	Class TokenClass
	Text  string
}

// Line is one highlighted line of serialized text. Property and ObjectID
// are set when the line's value is a method sentinel, so the presentation
// layer can invoke it.
type Line struct {
	Indent   int
	Tokens   []Token
	Property string
	ObjectID string
}

var (
	jsonToken    = regexp.MustCompile(`"(\\u[a-zA-Z0-9]{4}|\\[^u]|[^\\"])*"(\s*:)?|\b(true|false|null)\b|-?\d+(?:\.\d*)?(?:[eE][+\-]?\d+)?`)
	functionLine = regexp.MustCompile(`^"([^"]+)":\s*"\[Function:\s*([^\]]+)\]"`)
	bracketRun   = regexp.MustCompile(`[{}\[\],]`)
)

// Interactive reports whether the line carries an invokable method.
func (l Line) Interactive() bool { return l.Property != "" }

// Text is the line without markup.
func (l Line) Text() string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", l.Indent))
	for _, t := range l.Tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Markup renders the line as escaped HTML spans.
func (l Line) Markup() string {
	var b strings.Builder
	if l.Interactive() {
		b.WriteString(`<span class="json-line json-interactive" data-obj-id="` + html.EscapeString(l.ObjectID) +
			`" data-prop="` + html.EscapeString(l.Property) + `">`)
	}
	b.WriteString(strings.Repeat("&nbsp;", l.Indent))
	for _, t := range l.Tokens {
		if t.Class == TokenPlain {
			b.WriteString(html.EscapeString(t.Text))
			continue
		}
		b.WriteString(`<span class="` + string(t.Class) + `">` + html.EscapeString(t.Text) + `</span>`)
	}
	if l.Interactive() {
		b.WriteString("</span>")
	}
	return b.String()
}

// Highlight splits serialized text into classified lines. objectID is
// attached to lines holding a method sentinel.
func Highlight(text, objectID string) []Line {
	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for _, r := range raw {
		body := strings.TrimLeft(r, " ")
		l := Line{Indent: len(r) - len(body), Tokens: tokenize(body)}
		if m := functionLine.FindStringSubmatch(body); m != nil {
			l.Property = m[1]
			l.ObjectID = objectID
		}
		lines = append(lines, l)
	}
	return lines
}

// HighlightMarkup is Highlight rendered as HTML, lines joined by <br>.
func HighlightMarkup(text, objectID string) string {
	lines := Highlight(text, objectID)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Markup()
	}
	return strings.Join(out, "<br>")
}

func tokenize(s string) []Token {
	var tokens []Token
	last := 0
	for _, loc := range jsonToken.FindAllStringIndex(s, -1) {
		tokens = appendPlain(tokens, s[last:loc[0]])
		tokens = append(tokens, Token{Class: classify(s[loc[0]:loc[1]]), Text: s[loc[0]:loc[1]]})
		last = loc[1]
	}
	return appendPlain(tokens, s[last:])
}

func classify(match string) TokenClass {
	switch {
	case strings.HasPrefix(match, `"`):
		if strings.HasSuffix(strings.TrimRight(match, " \t"), ":") {
			return TokenKey
		}
		switch {
		case strings.HasPrefix(match, `"[Function:`):
			return TokenFunction
		case match == `"[Getter/Setter]"`:
			return TokenAccessor
		}
		return TokenString
	case match == "true" || match == "false":
		return TokenBoolean
	case match == "null":
		return TokenNull
	}
	return TokenNumber
}

func appendPlain(tokens []Token, s string) []Token {
	last := 0
	for _, loc := range bracketRun.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			tokens = append(tokens, Token{Class: TokenPlain, Text: s[last:loc[0]]})
		}
		tokens = append(tokens, Token{Class: TokenBracket, Text: s[loc[0]:loc[1]]})
		last = loc[1]
	}
	if last < len(s) {
		tokens = append(tokens, Token{Class: TokenPlain, Text: s[last:]})
	}
	return tokens
}
