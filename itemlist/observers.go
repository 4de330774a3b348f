package itemlist

import (
	"sync"
	"weak"
)

// ChangeFunc receives one change batch for a list. Callbacks run on the
// goroutine that performed the mutation (or on the poster for deferred
// Resync batches) and must not mutate the list.
type ChangeFunc func(list *List, batch *ChangeBatch)

// Token is the handle returned by Subscribe. Its existence is the only thing
// keeping the subscription alive: the registry holds it weakly, so a
// subscriber that drops its last reference simply stops receiving batches.
// Explicit cancellation goes through List.Unsubscribe.
type Token struct {
	key uint64
}

type registry struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]subscription
}

// subscription pairs a weakly held token with its strongly held callback.
// The callback survives until the token is reclaimed or unsubscribed.
type subscription struct {
	token weak.Pointer[Token]
	fn    ChangeFunc
}

func (r *registry) subscribe(fn ChangeFunc) *Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.subs == nil {
		r.subs = make(map[uint64]subscription)
	}
	r.next++
	tok := &Token{key: r.next}
	r.subs[tok.key] = subscription{token: weak.Make(tok), fn: fn}
	return tok
}

// unsubscribe drops the subscription for tok. Unknown, nil, or already
// removed tokens are a no-op.
func (r *registry) unsubscribe(tok *Token) {
	if tok == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, tok.key)
}

// dispatch fans the batch out to every live subscriber. Entries whose token
// has been reclaimed are pruned opportunistically. Callbacks run outside the
// registry lock so they may subscribe or unsubscribe freely; the order
// across subscribers is unspecified.
func (r *registry) dispatch(l *List, b *ChangeBatch) {
	r.mu.Lock()
	fns := make([]ChangeFunc, 0, len(r.subs))
	for key, sub := range r.subs {
		if sub.token.Value() == nil {
			delete(r.subs, key)
			continue
		}
		fns = append(fns, sub.fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(l, b)
	}
}

func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
