package domain

import "github.com/google/uuid"

// ReviewQueue is a session-local ordering of due cards. Skipping or removing
// cards only reorders the queue; it never touches a card's schedule or log.
type ReviewQueue struct {
	cards []*Card
}

// NewReviewQueue wraps cards, which are expected in due order.
func NewReviewQueue(cards []*Card) *ReviewQueue {
	q := &ReviewQueue{cards: make([]*Card, len(cards))}
	copy(q.cards, cards)
	return q
}

// Len returns the number of cards left in the session.
func (q *ReviewQueue) Len() int {
	return len(q.cards)
}

// Current returns the card at the front of the queue.
func (q *ReviewQueue) Current() (*Card, bool) {
	if len(q.cards) == 0 {
		return nil, false
	}
	return q.cards[0], true
}

// Skip moves the current card to the back of the queue.
func (q *ReviewQueue) Skip() {
	if len(q.cards) < 2 {
		return
	}
	head := q.cards[0]
	q.cards = append(q.cards[1:], head)
}

// Remove drops the card with the given id, typically after it was reviewed.
// It reports whether the card was present.
func (q *ReviewQueue) Remove(id uuid.UUID) bool {
	for i, c := range q.cards {
		if c.ID == id {
			q.cards = append(q.cards[:i], q.cards[i+1:]...)
			return true
		}
	}
	return false
}

// Cards returns the queue contents in order.
func (q *ReviewQueue) Cards() []*Card {
	out := make([]*Card, len(q.cards))
	copy(out, q.cards)
	return out
}
