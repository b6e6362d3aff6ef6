// Package parser turns query strings into query models.
package parser

import (
	"sort"

	"github.com/nlstn/go-rql/internal/lexer"
	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/rqlerrors"
)

// problemError carries a located problem through the recursive descent.
type problemError struct {
	problem rqlerrors.Problem
}

func (e *problemError) Error() string {
	return e.problem.String()
}

// Parser parses a token stream into a query model
type Parser struct {
	tokens   []*lexer.Token
	current  int
	problems []rqlerrors.Problem

	result     model.QueryModel
	seenSelect bool
	seenFilter bool
	seenSort   bool
	seenLimit  bool
	seenCursor bool
}

// Parse parses a query string. It returns a *rqlerrors.SyntaxError holding
// every problem found when the input is not a valid query.
func Parse(input string) (*model.QueryModel, error) {
	tokens, problems := lexer.NewTokenizer(input).TokenizeAll()
	p := &Parser{tokens: tokens, problems: problems}
	return p.Parse()
}

// currentToken returns the current token
func (p *Parser) currentToken() *lexer.Token {
	if p.current >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.current]
}

// advance moves to the next token
func (p *Parser) advance() *lexer.Token {
	token := p.currentToken()
	if p.current < len(p.tokens)-1 {
		p.current++
	}
	return token
}

func (p *Parser) errorAt(tok *lexer.Token, format string, args ...any) error {
	return &problemError{problem: tok.Problem(format, args...)}
}

// expect checks if the current token matches the expected type and advances
func (p *Parser) expect(tokenType lexer.TokenType) (*lexer.Token, error) {
	token := p.currentToken()
	if token.Type != tokenType {
		if token.Type == lexer.TokenIllegal {
			return nil, errAlreadyReported
		}
		return nil, p.errorAt(token, "mismatched input %s expecting %s", token.Display(), tokenType)
	}
	return p.advance(), nil
}

// errAlreadyReported aborts a segment at a token the lexer already flagged.
var errAlreadyReported = &problemError{}

func (p *Parser) record(err error) {
	if err == errAlreadyReported {
		return
	}
	if pe, ok := err.(*problemError); ok {
		p.problems = append(p.problems, pe.problem)
		return
	}
	p.problems = append(p.problems, rqlerrors.Problem{Msg: err.Error()})
}

func (p *Parser) semantic(msg string) {
	p.problems = append(p.problems, rqlerrors.Problem{Msg: msg})
}

// Parse parses the whole token stream
func (p *Parser) Parse() (*model.QueryModel, error) {
	if p.currentToken().Type != lexer.TokenEOF {
		for {
			if err := p.parseSegment(); err != nil {
				p.record(err)
				p.syncToSegment()
			}
			tok := p.currentToken()
			if tok.Type == lexer.TokenEOF {
				break
			}
			if tok.Type == lexer.TokenAmp {
				p.advance()
				continue
			}
			p.record(p.errorAt(tok, "extraneous input %s expecting {'&', <EOF>}", tok.Display()))
			p.syncToSegment()
		}
	}

	if p.result.Options.Slice != nil && p.result.Options.Cursor != nil {
		p.problems = append(p.problems, rqlerrors.Problem{
			Msg: "cursor and limit cannot be used together",
			Err: rqlerrors.ErrCursorAndLimit,
		})
	}

	if len(p.problems) > 0 {
		return nil, rqlerrors.NewSyntaxError(orderProblems(p.problems))
	}
	m := p.result
	return &m, nil
}

// syncToSegment skips to the next '&' or the end of input.
func (p *Parser) syncToSegment() {
	for {
		switch p.currentToken().Type {
		case lexer.TokenAmp, lexer.TokenEOF:
			return
		}
		p.advance()
	}
}

// orderProblems puts located problems first, by position, keeping the
// order of unlocated ones.
func orderProblems(problems []rqlerrors.Problem) []rqlerrors.Problem {
	out := make([]rqlerrors.Problem, 0, len(problems))
	var unlocated []rqlerrors.Problem
	for _, pr := range problems {
		if pr.Located {
			out = append(out, pr)
		} else {
			unlocated = append(unlocated, pr)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return append(out, unlocated...)
}

func (p *Parser) parseSegment() error {
	tok := p.currentToken()
	if tok.Type == lexer.TokenIllegal {
		return errAlreadyReported
	}
	if tok.Type != lexer.TokenIdentifier {
		return p.errorAt(tok, "mismatched input %s expecting {'select', 'filter', 'option'}", tok.Display())
	}

	switch tok.Value {
	case "select":
		p.advance()
		if _, err := p.expect(lexer.TokenEquals); err != nil {
			return err
		}
		sel, err := p.parseSelect()
		if err != nil {
			return err
		}
		if p.seenSelect {
			p.semantic("no more than one select statement allowed")
			return nil
		}
		p.seenSelect = true
		p.result.Select = sel
	case "filter":
		p.advance()
		if _, err := p.expect(lexer.TokenEquals); err != nil {
			return err
		}
		f, err := p.parseFilter()
		if err != nil {
			return err
		}
		if p.seenFilter {
			p.semantic("no more than one filter statement allowed")
			return nil
		}
		p.seenFilter = true
		p.result.Filter = f
	case "option":
		p.advance()
		if _, err := p.expect(lexer.TokenEquals); err != nil {
			return err
		}
		return p.parseOptions()
	default:
		return p.errorAt(tok, "mismatched input %s expecting {'select', 'filter', 'option'}", tok.Display())
	}
	return nil
}

func (p *Parser) parseSelect() (model.Select, error) {
	switch p.currentToken().Type {
	case lexer.TokenAmp, lexer.TokenEOF:
		return model.Select{}, nil
	}

	var attrs []string
	for {
		attr, err := p.parseAttribute()
		if err != nil {
			return model.Select{}, err
		}
		attrs = append(attrs, attr)
		if p.currentToken().Type != lexer.TokenComma {
			break
		}
		p.advance()
	}
	return model.NewSelect(attrs...), nil
}

// parseAttribute reads a dotted or slash separated attribute path.
func (p *Parser) parseAttribute() (string, error) {
	tok := p.currentToken()
	if tok.Type == lexer.TokenIllegal {
		return "", errAlreadyReported
	}
	if tok.Type != lexer.TokenIdentifier {
		return "", p.errorAt(tok, "mismatched input %s expecting attribute", tok.Display())
	}
	if !model.ValidPath(tok.Value) {
		return "", p.errorAt(tok, "invalid attribute path '%s'", tok.Value)
	}
	p.advance()
	return tok.Value, nil
}
