package parser

import (
	"strconv"

	"github.com/nlstn/go-rql/internal/lexer"
	"github.com/nlstn/go-rql/internal/model"
)

func (p *Parser) parseOptions() error {
	for {
		if err := p.parseOptionClause(); err != nil {
			return err
		}
		if p.currentToken().Type != lexer.TokenComma {
			return nil
		}
		p.advance()
	}
}

func (p *Parser) parseOptionClause() error {
	tok := p.currentToken()
	if tok.Type == lexer.TokenIllegal {
		return errAlreadyReported
	}
	if tok.Type != lexer.TokenIdentifier {
		return p.errorAt(tok, "mismatched input %s expecting {'sort', 'limit', 'cursor'}", tok.Display())
	}

	switch tok.Value {
	case "sort":
		p.advance()
		order, err := p.parseSort()
		if err != nil {
			return err
		}
		if p.seenSort {
			p.semantic("no more than one sort clause allowed")
			return nil
		}
		p.seenSort = true
		p.result.Options.Order = order
	case "limit":
		p.advance()
		slice, err := p.parseLimit()
		if err != nil {
			return err
		}
		if p.seenLimit {
			p.semantic("no more than one limit clause allowed")
			return nil
		}
		p.seenLimit = true
		p.result.Options.Slice = slice
	case "cursor":
		p.advance()
		cursor, err := p.parseCursor()
		if err != nil {
			return err
		}
		if p.seenCursor {
			p.semantic("no more than one cursor clause allowed")
			return nil
		}
		p.seenCursor = true
		p.result.Options.Cursor = cursor
	default:
		return p.errorAt(tok, "mismatched input %s expecting {'sort', 'limit', 'cursor'}", tok.Display())
	}
	return nil
}

func (p *Parser) parseSort() ([]model.SortEntry, error) {
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	var order []model.SortEntry
	for {
		tok := p.currentToken()
		var dir model.Direction
		switch tok.Type {
		case lexer.TokenPlus:
			dir = model.Asc
		case lexer.TokenMinus:
			dir = model.Desc
		default:
			return nil, p.errorAt(tok, "missing sign at %s", tok.Display())
		}
		p.advance()
		attr, err := p.parseAttribute()
		if err != nil {
			return nil, err
		}
		order = append(order, model.SortEntry{Attribute: attr, Direction: dir})
		if p.currentToken().Type != lexer.TokenComma {
			break
		}
		p.advance()
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return order, nil
}

func (p *Parser) parseLimit() (*model.Slice, error) {
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	offset, err := p.parseUint()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenComma); err != nil {
		return nil, err
	}
	limit, err := p.parseUint()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return &model.Slice{Offset: offset, Limit: limit}, nil
}

func (p *Parser) parseCursor() (*model.Cursor, error) {
	if _, err := p.expect(lexer.TokenLParen); err != nil {
		return nil, err
	}
	cursor := &model.Cursor{}
	if tok := p.currentToken(); tok.Type == lexer.TokenString {
		p.advance()
		token := tok.Value
		cursor.Token = &token
		if _, err := p.expect(lexer.TokenComma); err != nil {
			return nil, err
		}
	}
	limit, err := p.parseUint()
	if err != nil {
		return nil, err
	}
	cursor.Limit = limit
	if _, err := p.expect(lexer.TokenRParen); err != nil {
		return nil, err
	}
	return cursor, nil
}

func (p *Parser) parseUint() (uint64, error) {
	tok := p.currentToken()
	if tok.Type != lexer.TokenInt {
		if tok.Type == lexer.TokenIllegal {
			return 0, errAlreadyReported
		}
		return 0, p.errorAt(tok, "mismatched input %s expecting integer", tok.Display())
	}
	n, err := strconv.ParseUint(tok.Value, 10, 64)
	if err != nil {
		return 0, p.errorAt(tok, "invalid non-negative integer '%s'", tok.Value)
	}
	p.advance()
	return n, nil
}
