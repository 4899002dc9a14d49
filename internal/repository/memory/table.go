package memory

import "sort"

// row is a stored value plus its insertion sequence. Stored values are
// never mutated in place; writers replace the whole row.
type row[T any] struct {
	v   *T
	seq uint64
}

type table[T any] map[string]row[T]

// pending holds the writes of one unit of work until commit.
type pending[T any] struct {
	put map[string]row[T]
	del map[string]bool
}

func newPending[T any]() *pending[T] {
	return &pending[T]{put: make(map[string]row[T]), del: make(map[string]bool)}
}

func (p *pending[T]) apply(base table[T]) {
	for id := range p.del {
		delete(base, id)
	}
	for id, r := range p.put {
		base[id] = r
	}
}

// lookup reads id through the pending writes, if any. Callers hold the store read lock.
func lookup[T any](base table[T], p *pending[T], id string) (row[T], bool) {
	if p != nil {
		if p.del[id] {
			return row[T]{}, false
		}
		if r, ok := p.put[id]; ok {
			return r, true
		}
	}
	r, ok := base[id]
	return r, ok
}

// scan returns every visible row in insertion order. Callers hold the store read lock.
func scan[T any](base table[T], p *pending[T]) []row[T] {
	out := make([]row[T], 0, len(base))
	for id, r := range base {
		if p != nil {
			if _, shadowed := p.put[id]; shadowed || p.del[id] {
				continue
			}
		}
		out = append(out, r)
	}
	if p != nil {
		for _, r := range p.put {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func clonePtr[T any](v *T) *T {
	c := *v
	return &c
}
