// Package cursor encodes the position of a page in an opaque token bound to
// the filter and ordering of the query it was issued for.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/nlstn/go-rql/internal/model"
	"github.com/nlstn/go-rql/internal/rqlerrors"
)

// Token is the decoded state of a cursor.
type Token struct {
	// Offset is the number of rows before the page.
	Offset uint64 `json:"o"`
	// Fingerprint identifies the filter and ordering of the query.
	Fingerprint uint64 `json:"f"`
}

// Fingerprint hashes the parts of m that decide row order.
func Fingerprint(m *model.QueryModel) uint64 {
	d := xxhash.New()
	if m != nil {
		if m.Filter != nil {
			_, _ = d.WriteString(model.FilterString(m.Filter))
		}
		_, _ = d.WriteString("|")
		_, _ = d.WriteString(model.Options{Order: m.Options.Order}.String())
	}
	return d.Sum64()
}

// Encode encodes a token into a URL safe string.
func Encode(token Token) (string, error) {
	jsonBytes, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(jsonBytes), nil
}

// Decode decodes a token produced by Encode.
func Decode(encoded string) (Token, error) {
	var token Token
	if encoded == "" {
		return token, fmt.Errorf("%w: empty token", rqlerrors.ErrInvalidCursor)
	}
	jsonBytes, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return token, fmt.Errorf("%w: %v", rqlerrors.ErrInvalidCursor, err)
	}
	if err := json.Unmarshal(jsonBytes, &token); err != nil {
		return token, fmt.Errorf("%w: %v", rqlerrors.ErrInvalidCursor, err)
	}
	return token, nil
}

// At returns the token for the page of m starting at offset.
func At(m *model.QueryModel, offset uint64) (string, error) {
	return Encode(Token{Offset: offset, Fingerprint: Fingerprint(m)})
}

// Window returns the rows selected by the paging options of m. paged is
// false when m neither has a limit nor a cursor.
func Window(m *model.QueryModel) (offset, limit uint64, paged bool, err error) {
	switch {
	case m == nil:
		return 0, 0, false, nil
	case m.Options.Slice != nil:
		return m.Options.Slice.Offset, m.Options.Slice.Limit, true, nil
	case m.Options.Cursor != nil:
		c := m.Options.Cursor
		if c.Token == nil {
			return 0, c.Limit, true, nil
		}
		token, err := Decode(*c.Token)
		if err != nil {
			return 0, 0, false, err
		}
		if token.Fingerprint != Fingerprint(m) {
			return 0, 0, false, fmt.Errorf("%w: cursor was issued for a different query", rqlerrors.ErrInvalidCursor)
		}
		return token.Offset, c.Limit, true, nil
	}
	return 0, 0, false, nil
}

// Next returns the token of the page after the one of m, given the number of
// rows that page returned. It returns nil when m is not cursor paged or the
// page was not full.
func Next(m *model.QueryModel, returned int) (*string, error) {
	if m == nil || m.Options.Cursor == nil {
		return nil, nil
	}
	offset, limit, _, err := Window(m)
	if err != nil {
		return nil, err
	}
	if limit == 0 || uint64(returned) < limit {
		return nil, nil
	}
	token, err := At(m, offset+limit)
	if err != nil {
		return nil, err
	}
	return &token, nil
}
