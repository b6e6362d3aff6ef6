package parser

import (
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nlstn/go-rql/internal/lexer"
	"github.com/nlstn/go-rql/internal/model"
)

var timestampNormalizer = strings.NewReplacer(",", ".", "t", "T", "z", "Z")

func (p *Parser) parseLiteral() (any, model.Kind, error) {
	tok := p.currentToken()
	switch tok.Type {
	case lexer.TokenString:
		p.advance()
		return tok.Value, model.KindString, nil
	case lexer.TokenInt:
		n, ok := new(big.Int).SetString(tok.Value, 10)
		if !ok {
			return nil, model.KindInvalid, p.errorAt(tok, "invalid integer '%s'", tok.Value)
		}
		p.advance()
		return model.NarrowInt(n), model.KindInt, nil
	case lexer.TokenFloat:
		d, err := decimal.NewFromString(tok.Value)
		if err != nil {
			return nil, model.KindInvalid, p.errorAt(tok, "invalid decimal '%s'", tok.Value)
		}
		p.advance()
		return d, model.KindDecimal, nil
	case lexer.TokenTimestamp:
		ts, err := parseTimestamp(tok.Value)
		if err != nil {
			return nil, model.KindInvalid, p.errorAt(tok, "invalid timestamp '%s': %v", tok.Value, err)
		}
		p.advance()
		return ts, model.KindTime, nil
	case lexer.TokenIdentifier:
		switch tok.Value {
		case "null":
			p.advance()
			return nil, model.KindNull, nil
		case "true", "false":
			p.advance()
			return tok.Value == "true", model.KindBool, nil
		}
	case lexer.TokenIllegal:
		return nil, model.KindInvalid, errAlreadyReported
	}
	return nil, model.KindInvalid, p.errorAt(tok, "mismatched input %s expecting literal", tok.Display())
}

// parseTimestamp reads an offset date-time. The lexer guarantees the shape,
// this checks the calendar.
func parseTimestamp(text string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, timestampNormalizer.Replace(text))
}
