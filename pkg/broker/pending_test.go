package broker

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingEventsAddGetRelease(t *testing.T) {
	p := NewPendingEvents()

	id := p.Add([]byte("encoded frame"), 3)
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 3, p.remaining(id))

	data, ok := p.Get(id)
	require.True(t, ok)
	assert.Equal(t, []byte("encoded frame"), data)

	p.Release(id)
	p.Release(id)
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 1, p.remaining(id))

	p.Release(id)
	assert.Zero(t, p.Len())

	_, ok = p.Get(id)
	assert.False(t, ok)
}

func TestPendingEventsReleaseUnknownID(t *testing.T) {
	p := NewPendingEvents()

	// Releasing an id that was already freed must not disturb live events.
	id := p.Add([]byte("a"), 1)
	p.Release(id)
	p.Release(id)

	other := p.Add([]byte("b"), 1)
	assert.Equal(t, 1, p.remaining(other))
}

func TestPendingEventsDistinctIDs(t *testing.T) {
	p := NewPendingEvents()

	first := p.Add([]byte("a"), 1)
	second := p.Add([]byte("b"), 1)
	require.NotEqual(t, first, second)

	dataA, _ := p.Get(first)
	dataB, _ := p.Get(second)
	assert.Equal(t, []byte("a"), dataA)
	assert.Equal(t, []byte("b"), dataB)
}

func TestPendingEventsCounterWraparound(t *testing.T) {
	p := NewPendingEvents()
	p.counter = math.MaxUint64

	id := p.Add([]byte("wrapped"), 1)
	assert.Equal(t, EventID(0), id)

	next := p.Add([]byte("after"), 1)
	assert.Equal(t, EventID(1), next)

	data, ok := p.Get(id)
	require.True(t, ok)
	assert.Equal(t, []byte("wrapped"), data)
}

func TestPendingEventsZeroRecipientsPanics(t *testing.T) {
	p := NewPendingEvents()
	assert.Panics(t, func() { p.Add([]byte("a"), 0) })
}
