// Package task runs background work off the request path. Events that need
// follow-up work, such as a topic color change that must be copied onto every
// card of the topic, are turned into tasks by a factory and executed by the
// TaskRunner's worker goroutines.
package task
