// Package store defines the persistence contracts of the scheduler: cards
// with their review logs, topics, and the global settings record.
//
// Implementations live under internal/platform (postgres and sqlite). All of
// them store instants normalized by domain.NormalizeTime so that a card read
// back compares equal to the card that was written.
package store
