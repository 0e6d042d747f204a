package security

import (
	"fmt"
	"strings"
	"unicode"
)

type sqlToken struct {
	text       string
	isFunction bool // immediately followed by "(": a call, not a column
	isLiteral  bool // string literal content, never an identifier
}

type scannedSQL struct {
	// stripped has string literals replaced by "?", quoted identifiers by
	// "qid" and comments removed, so keyword scans never match literal text.
	stripped                 string
	withoutTrailingSemicolon string
	interiorSemicolon        bool
	hasLimit                 bool
	tokens                   []sqlToken
}

// scanSQL walks the statement once, tracking string/identifier/comment state.
// It returns an error only for lexical problems (unterminated literal or
// comment, unbalanced parentheses); policy checks happen in the validator.
func scanSQL(sql string) (scannedSQL, error) {
	var out scannedSQL
	var stripped strings.Builder
	var ident strings.Builder

	runes := []rune(sql)
	parenDepth := 0

	flushIdent := func(pos int) {
		if ident.Len() == 0 {
			return
		}
		text := ident.String()
		ident.Reset()
		isFn := false
		for j := pos; j < len(runes); j++ {
			if unicode.IsSpace(runes[j]) {
				continue
			}
			isFn = runes[j] == '('
			break
		}
		out.tokens = append(out.tokens, sqlToken{text: text, isFunction: isFn})
		if strings.EqualFold(text, "LIMIT") {
			out.hasLimit = true
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'': // string literal, '' escapes a quote
			flushIdent(i)
			stripped.WriteByte('?')
			start := i + 1
			i++
			for {
				if i >= len(runes) {
					return out, fmt.Errorf("unterminated string literal")
				}
				if runes[i] == '\'' {
					if i+1 < len(runes) && runes[i+1] == '\'' {
						i += 2
						continue
					}
					break
				}
				i++
			}
			// Literals become tokens too: DuckDB treats a bare path after
			// FROM as a file scan, so the validator must see them.
			out.tokens = append(out.tokens, sqlToken{text: string(runes[start:i]), isLiteral: true})

		case r == '"': // quoted identifier
			flushIdent(i)
			start := i + 1
			i++
			for i < len(runes) && runes[i] != '"' {
				i++
			}
			if i >= len(runes) {
				return out, fmt.Errorf("unterminated quoted identifier")
			}
			text := string(runes[start:i])
			isFn := false
			for j := i + 1; j < len(runes); j++ {
				if unicode.IsSpace(runes[j]) {
					continue
				}
				isFn = runes[j] == '('
				break
			}
			out.tokens = append(out.tokens, sqlToken{text: text, isFunction: isFn})
			stripped.WriteString("qid")

		case r == '-' && i+1 < len(runes) && runes[i+1] == '-': // line comment
			flushIdent(i)
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			stripped.WriteByte(' ')

		case r == '/' && i+1 < len(runes) && runes[i+1] == '*': // block comment
			flushIdent(i)
			i += 2
			closed := false
			for i+1 < len(runes) {
				if runes[i] == '*' && runes[i+1] == '/' {
					i++
					closed = true
					break
				}
				i++
			}
			if !closed {
				return out, fmt.Errorf("unterminated block comment")
			}
			stripped.WriteByte(' ')

		case r == '_' || unicode.IsLetter(r) || (ident.Len() > 0 && unicode.IsDigit(r)):
			ident.WriteRune(r)
			stripped.WriteRune(r)

		default:
			flushIdent(i)
			stripped.WriteRune(r)
			switch r {
			case '(':
				parenDepth++
			case ')':
				parenDepth--
				if parenDepth < 0 {
					return out, fmt.Errorf("unbalanced parentheses")
				}
			}
		}
	}
	flushIdent(len(runes))

	if parenDepth != 0 {
		return out, fmt.Errorf("unbalanced parentheses")
	}

	out.stripped = stripped.String()
	out.withoutTrailingSemicolon = strings.TrimRight(strings.TrimSpace(sql), "; \t\n\r")

	body := strings.TrimRight(out.stripped, "; \t\n\r")
	out.interiorSemicolon = strings.Contains(body, ";")

	return out, nil
}
