package rql

import (
	"iter"
	"math"
)

// Pager splits a query into consecutive pages of at most size entries.
//
// Without a slice the pages are unbounded: limit(0,size), limit(size,size),
// and so on. With limit(offset,limit) the pages cover exactly
// [offset, offset+limit), the last one possibly shorter. A cursor on the
// model is dropped and the query is paged from the start.
//
// Every page keeps the select, filter and order of the model. A Pager is
// forward only; create a new one to start over.
type Pager struct {
	base    *QueryModel
	size    uint64
	next    uint64
	end     uint64
	bounded bool
	done    bool
}

// NewPager returns a pager over m. A size of zero or less yields no pages.
func NewPager(m *QueryModel, size int) *Pager {
	p := &Pager{base: m, done: size <= 0}
	if p.done {
		return p
	}
	p.size = uint64(size)
	if m != nil && m.Options.Slice != nil {
		p.bounded = true
		p.next = m.Options.Slice.Offset
		p.end = saturatingAdd(m.Options.Slice.Offset, m.Options.Slice.Limit)
	}
	return p
}

// Next returns the next page, or false once the pages are exhausted.
func (p *Pager) Next() (*QueryModel, bool) {
	if p.done {
		return nil, false
	}
	limit := p.size
	if p.bounded {
		if p.next >= p.end {
			p.done = true
			return nil, false
		}
		limit = min(limit, p.end-p.next)
	}
	page := p.base.WithSlice(p.next, limit)
	if p.next > math.MaxUint64-limit {
		p.done = true
	} else {
		p.next += limit
	}
	return page, true
}

// All returns the remaining pages as an iterator. Stopping the range loop
// early is fine; the pager keeps its position.
func (p *Pager) All() iter.Seq[*QueryModel] {
	return func(yield func(*QueryModel) bool) {
		for {
			page, ok := p.Next()
			if !ok || !yield(page) {
				return
			}
		}
	}
}

// Pages returns the pages of m with at most size entries each.
//
// Example:
//
//	for page := range rql.Pages(m, 500) {
//	    rows, _, err := rql.FindGORM[Order](ctx, db, page, schema)
//	    if err != nil || len(rows) == 0 {
//	        break
//	    }
//	}
func Pages(m *QueryModel, size int) iter.Seq[*QueryModel] {
	return NewPager(m, size).All()
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
