package template

import (
	"regexp"
	"strings"
)

// TokenType represents the type of a template token
type TokenType int

const (
	TokenText TokenType = iota
	TokenExpression
	TokenIf
	TokenElse
	TokenElsif
	TokenUnless
	TokenFor
	TokenEnd
)

func (t TokenType) String() string {
	switch t {
	case TokenText:
		return "text"
	case TokenExpression:
		return "expression"
	case TokenIf:
		return "if"
	case TokenElse:
		return "else"
	case TokenElsif:
		return "elsif"
	case TokenUnless:
		return "unless"
	case TokenFor:
		return "for"
	case TokenEnd:
		return "end"
	}
	return "unknown"
}

// opens reports whether the token starts a structure closed by {{end}}.
func (t TokenType) opens() bool {
	return t == TokenIf || t == TokenUnless || t == TokenFor
}

// control reports whether the token is part of a control structure.
func (t TokenType) control() bool {
	return t != TokenText && t != TokenExpression
}

// Token represents a parsed template token
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// markerRegex matches one {{ ... }} marker. Closing braces inside string
// literals are allowed.
var markerRegex = regexp.MustCompile(`\{\{((?:"[^"]*"|'[^']*'|[^}])*)\}\}`)

// Tokenize splits template text into literal text and markers.
func Tokenize(input string) []Token {
	var tokens []Token
	lastEnd := 0

	for _, match := range markerRegex.FindAllStringSubmatchIndex(input, -1) {
		if match[0] > lastEnd {
			tokens = append(tokens, Token{Type: TokenText, Value: input[lastEnd:match[0]], Pos: lastEnd})
		}

		content := strings.TrimSpace(input[match[2]:match[3]])
		if content == "" {
			tokens = append(tokens, Token{Type: TokenText, Value: input[match[0]:match[1]], Pos: match[0]})
		} else {
			token := parseToken(content)
			token.Pos = match[0]
			tokens = append(tokens, token)
		}
		lastEnd = match[1]
	}

	if lastEnd < len(input) {
		tokens = append(tokens, Token{Type: TokenText, Value: input[lastEnd:], Pos: lastEnd})
	}
	return tokens
}

// parseToken determines the type of token from its content
func parseToken(content string) Token {
	keyword := content
	if i := strings.IndexAny(content, " \t\n"); i >= 0 {
		keyword = content[:i]
	}
	rest := strings.TrimSpace(strings.TrimPrefix(content, keyword))

	switch keyword {
	case "if":
		return Token{Type: TokenIf, Value: rest}
	case "else":
		if rest == "" {
			return Token{Type: TokenElse}
		}
	case "elsif", "elseif", "elif":
		return Token{Type: TokenElsif, Value: rest}
	case "unless":
		return Token{Type: TokenUnless, Value: rest}
	case "for":
		return Token{Type: TokenFor, Value: rest}
	case "end":
		if rest == "" {
			return Token{Type: TokenEnd}
		}
	}
	return Token{Type: TokenExpression, Value: content}
}

// HasMarker reports whether text contains a complete {{ ... }} marker.
func HasMarker(text string) bool {
	return markerRegex.MatchString(text)
}

// hasUnclosedMarker checks if a string contains a {{ that doesn't have a
// matching }}.
func hasUnclosedMarker(s string) bool {
	depth := 0
	for i := 0; i < len(s)-1; i++ {
		if s[i] == '{' && s[i+1] == '{' {
			depth++
			i++
		} else if s[i] == '}' && s[i+1] == '}' {
			if depth > 0 {
				depth--
			}
			i++
		}
	}
	return depth > 0
}

// controlDepth returns the number of structures opened but not closed.
func controlDepth(text string) int {
	depth := 0
	for _, token := range Tokenize(text) {
		switch {
		case token.Type.opens():
			depth++
		case token.Type == TokenEnd:
			depth--
		}
	}
	return depth
}

// balanced reports whether text can be rendered on its own.
func balanced(text string) bool {
	return !hasUnclosedMarker(text) && controlDepth(text) <= 0
}
