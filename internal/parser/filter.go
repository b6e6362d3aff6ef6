package parser

import (
	"github.com/nlstn/go-rql/internal/lexer"
	"github.com/nlstn/go-rql/internal/model"
)

// expected literal sets, by operator family, for error messages
const (
	expectAnyLiteral     = "{'null', 'true', 'false', string, integer, decimal, timestamp}"
	expectOrderedLiteral = "{string, integer, decimal, timestamp}"
	expectStringLiteral  = "string"
	expectInLiteral      = "{string, integer, decimal}"
)

func (p *Parser) parseFilter() (model.Filter, error) {
	tok := p.currentToken()
	if tok.Type == lexer.TokenIllegal {
		return nil, errAlreadyReported
	}
	if tok.Type != lexer.TokenIdentifier {
		return nil, p.errorAt(tok, "mismatched input %s expecting filter expression", tok.Display())
	}

	switch tok.Value {
	case "and", "or":
		p.advance()
		children, err := p.parseFilterList()
		if err != nil {
			return nil, err
		}
		if tok.Value == "and" {
			return &model.And{Children: children}, nil
		}
		return &model.Or{Children: children}, nil
	case "not":
		p.advance()
		if _, err := p.expect(lexer.TokenLParen); err != nil {
			return nil, err
		}
		child, err := p.parseFilter()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokenRParen); err != nil {
			return nil, err
		}
		return &model.Not{Child: child}, nil
	}

	op, ok := model.LookupOperator(tok.Value)
	if !ok {
		return nil, p.errorAt(tok, "operation unknown: '%s'", tok.Value)
	}
	p.advance()
	return p.parseComparison(op)
}

func (p *Parser) parseFilterList() ([]model.Filter, error) {
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	var children []model.Filter
	for {
		child, err := p.parseFilter()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		if p.currentToken().Type != lexer.TokenComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return children, nil
}

func (p *Parser) parseComparison(op model.Operator) (model.Filter, error) {
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	attr, err := p.parseAttribute()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenComma); err != nil {
		return nil, err
	}

	var values []any
	first := model.KindInvalid
	for {
		tok := p.currentToken()
		value, kind, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		if !op.AcceptsKind(kind) {
			return nil, p.errorAt(tok, "mismatched input %s expecting %s", tok.Display(), expectedLiterals(op))
		}
		if first == model.KindInvalid {
			first = kind
		} else if kind != first {
			return nil, p.errorAt(tok, "mixed literal types in %s(%s)", op, attr)
		}
		values = append(values, value)

		if op != model.OpIn || p.currentToken().Type != lexer.TokenComma {
			break
		}
		p.advance()
	}

	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return &model.Comparison{Attribute: attr, Operator: op, Values: values}, nil
}

func expectedLiterals(op model.Operator) string {
	switch {
	case op.Family() == model.FamilyLike:
		return expectStringLiteral
	case op.Family() == model.FamilyIn:
		return expectInLiteral
	case op.IsOrdering():
		return expectOrderedLiteral
	default:
		return expectAnyLiteral
	}
}
