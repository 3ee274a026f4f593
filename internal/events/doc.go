// Package events carries domain events between components.
//
// Services emit an Event after a change is persisted: a submitted or undone
// review, a recalculation, a settings change, or a topic color change.
// Handlers such as the metrics collector and the task factory subscribe
// through InMemoryEventEmitter without the services knowing about them.
package events
