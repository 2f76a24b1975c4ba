package parser

import "github.com/thirawat27/QB-COM/pkg/token"

// Error codes used to classify a ParserError without parsing its message.
const (
	ErrUnexpectedToken  = "PARSE_UNEXPECTED_TOKEN"
	ErrNoPrefixParse    = "PARSE_NO_PREFIX"
	ErrInvalidStatement = "PARSE_INVALID_STATEMENT"
	ErrUnterminatedBlock = "PARSE_UNTERMINATED_BLOCK"
)

// ParserError is a single diagnostic produced while parsing, with enough
// position information for the caret-style renderer in
// internal/diagnostics to point at the offending token.
type ParserError struct {
	Pos     token.Position
	Length  int
	Message string
	Code    string
}

func (e *ParserError) Error() string { return e.Message }

// NewParserError builds a ParserError at the given span.
func NewParserError(pos token.Position, length int, msg string, code string) *ParserError {
	return &ParserError{Pos: pos, Length: length, Message: msg, Code: code}
}
