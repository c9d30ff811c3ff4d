package sqlrewrite

import "strings"

// TokenKind classifies a lexical token.
type TokenKind int

// Token kinds produced by the lexer.
const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenQuotedIdent
	TokenString
	TokenNumber
	TokenPunct
	TokenComment
	TokenSpace
)

// Token is a lexeme with its byte span in the input. Text is the decoded
// value for quoted identifiers and strings and the raw text otherwise.
type Token struct {
	Kind  TokenKind
	Text  string
	Start int
	End   int
}

// Significant reports whether the token carries syntax (not space or comment).
func (t Token) Significant() bool {
	return t.Kind != TokenSpace && t.Kind != TokenComment && t.Kind != TokenEOF
}

// IsKeyword reports whether the token is the unquoted word kw (case-insensitive).
func (t Token) IsKeyword(kw string) bool {
	return t.Kind == TokenIdent && strings.EqualFold(t.Text, kw)
}

// IsPunct reports whether the token is the punctuation p.
func (t Token) IsPunct(p string) bool {
	return t.Kind == TokenPunct && t.Text == p
}

// Lexer splits SQL into tokens while preserving every byte of input, so the
// concatenation of token spans reproduces the original text.
type Lexer struct {
	input   string
	pos     int
	readPos int
	ch      byte
}

// NewLexer creates a Lexer over input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

// Tokenize returns all tokens of input, excluding the final EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var out []Token
	for {
		tok := l.NextToken()
		if tok.Kind == TokenEOF {
			return out
		}
		out = append(out, tok)
	}
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool { return l.pos >= len(l.input) }

// NextToken returns the next token. Unterminated strings, quoted identifiers
// and block comments run to the end of input.
func (l *Lexer) NextToken() Token {
	start := l.pos
	if l.atEOF() {
		return Token{Kind: TokenEOF, Start: start, End: start}
	}

	switch {
	case isSpace(l.ch):
		for !l.atEOF() && isSpace(l.ch) {
			l.readChar()
		}
		return l.token(TokenSpace, start)
	case l.ch == '-' && l.peekChar() == '-':
		for !l.atEOF() && l.ch != '\n' {
			l.readChar()
		}
		return l.token(TokenComment, start)
	case l.ch == '/' && l.peekChar() == '*':
		l.readChar()
		l.readChar()
		for !l.atEOF() {
			if l.ch == '*' && l.peekChar() == '/' {
				l.readChar()
				l.readChar()
				break
			}
			l.readChar()
		}
		return l.token(TokenComment, start)
	case l.ch == '\'':
		text := l.readQuoted('\'')
		return Token{Kind: TokenString, Text: text, Start: start, End: l.pos}
	case l.ch == '"':
		text := l.readQuoted('"')
		return Token{Kind: TokenQuotedIdent, Text: text, Start: start, End: l.pos}
	case isLetter(l.ch) || l.ch == '_':
		for !l.atEOF() && (isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' || l.ch == '$') {
			l.readChar()
		}
		return l.token(TokenIdent, start)
	case isDigit(l.ch):
		for !l.atEOF() && (isDigit(l.ch) || l.ch == '.' || l.ch == '_' || isLetter(l.ch)) {
			l.readChar()
		}
		return l.token(TokenNumber, start)
	default:
		l.readChar()
		return l.token(TokenPunct, start)
	}
}

func (l *Lexer) token(kind TokenKind, start int) Token {
	return Token{Kind: kind, Text: l.input[start:l.pos], Start: start, End: l.pos}
}

// readQuoted consumes a quote-delimited run where a doubled quote is an
// escaped quote, returning the decoded contents.
func (l *Lexer) readQuoted(quote byte) string {
	l.readChar()
	var result strings.Builder
	for !l.atEOF() {
		if l.ch == quote {
			if l.peekChar() == quote {
				result.WriteByte(quote)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			break
		}
		result.WriteByte(l.ch)
		l.readChar()
	}
	return result.String()
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
