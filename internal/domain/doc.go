// Package domain holds the entities of the scheduler (cards with their
// memory state and review log, ratings, topics, and settings) together with
// their validation rules. It has no knowledge of storage or transport.
package domain
