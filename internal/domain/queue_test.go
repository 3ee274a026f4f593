package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestReviewQueue(t *testing.T) {
	t.Parallel()
	a := &Card{ID: uuid.New(), Title: "a"}
	b := &Card{ID: uuid.New(), Title: "b"}
	c := &Card{ID: uuid.New(), Title: "c"}
	q := NewReviewQueue([]*Card{a, b, c})

	cur, ok := q.Current()
	assert.True(t, ok)
	assert.Equal(t, a, cur)

	q.Skip()
	assert.Equal(t, []*Card{b, c, a}, q.Cards())

	assert.True(t, q.Remove(c.ID))
	assert.False(t, q.Remove(c.ID))
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, []*Card{b, a}, q.Cards())

	q.Remove(a.ID)
	q.Skip()
	cur, _ = q.Current()
	assert.Equal(t, b, cur)

	q.Remove(b.ID)
	_, ok = q.Current()
	assert.False(t, ok)
}
