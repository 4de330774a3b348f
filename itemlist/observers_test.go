package itemlist

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribersSeeEveryBatchInOrder(t *testing.T) {
	f := stubFactory{
		"/a": namedItem("apple"),
		"/b": namedItem("banana"),
	}
	l := newNameList(f)

	first := record(l)
	second := record(l)

	require.NoError(t, l.Add("/a"))
	require.NoError(t, l.Add("/b"))
	l.Remove(f["/a"].ID)

	require.Len(t, first.batches, 3)
	require.Len(t, second.batches, 3)
	// Both observers see the same batches in production order.
	for i := range first.batches {
		assert.Same(t, first.batches[i], second.batches[i])
	}
	assert.Len(t, first.batches[0].Insertions, 1)
	assert.Len(t, first.batches[2].Deletions, 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	f := stubFactory{"/a": namedItem("apple"), "/b": namedItem("banana")}
	l := newNameList(f)
	rec := record(l)

	require.NoError(t, l.Add("/a"))
	require.Len(t, rec.batches, 1)

	l.Unsubscribe(rec.token)
	require.NoError(t, l.Add("/b"))
	assert.Len(t, rec.batches, 1)

	t.Run("repeated and unknown tokens are no-ops", func(t *testing.T) {
		l.Unsubscribe(rec.token)
		l.Unsubscribe(&Token{key: 12345})
		l.Unsubscribe(nil)
	})
}

func TestDroppedTokenIsReclaimed(t *testing.T) {
	f := stubFactory{"/a": namedItem("apple")}
	l := newNameList(f)

	var calls int
	tok := l.Subscribe(func(_ *List, _ *ChangeBatch) { calls++ })
	require.Equal(t, 1, l.registry.size())
	runtime.KeepAlive(tok)

	// Drop the only strong reference and let the collector reclaim it.
	tok = nil
	_ = tok
	for i := 0; i < 5; i++ {
		runtime.GC()
	}

	// The dispatch after reclamation prunes the subscription instead of
	// failing.
	require.NoError(t, l.Add("/a"))
	assert.Zero(t, l.registry.size())
	assert.Zero(t, calls)
}

func TestCallbackMaySubscribeDuringDispatch(t *testing.T) {
	f := stubFactory{"/a": namedItem("apple"), "/b": namedItem("banana")}
	l := newNameList(f)

	var nested *recorder
	outer := &recorder{}
	outer.token = l.Subscribe(func(list *List, b *ChangeBatch) {
		outer.batches = append(outer.batches, b)
		if nested == nil {
			nested = record(list)
		}
	})

	require.NoError(t, l.Add("/a"))
	require.NoError(t, l.Add("/b"))

	assert.Len(t, outer.batches, 2)
	require.NotNil(t, nested)
	assert.Len(t, nested.batches, 1)
}

func TestChangeBatchIsEmpty(t *testing.T) {
	b := &ChangeBatch{}
	assert.True(t, b.IsEmpty())

	b.addMovement(0, 1)
	assert.False(t, b.IsEmpty())
	assert.Equal(t, []Movement{{From: 0, To: 1}}, b.Movements)
}
