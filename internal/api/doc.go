// Package api exposes the scheduler over HTTP. Handlers decode and validate
// JSON requests, call the card, review, topic, and settings services, and
// map their errors onto status codes with client-safe messages.
package api
