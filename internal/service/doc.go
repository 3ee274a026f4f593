// Package service contains the application services that sit between the
// HTTP API and the stores: card management, topics, and the process-wide
// settings. Review scheduling lives in the card_review subpackage.
//
// Services receive their stores and collaborators through constructor
// injection and return concrete types; consumers declare the narrow
// interfaces they need.
//
// Writes to a card are serialized in-process through CardLocks. Single-card
// writers (review submission, undo, edit, delete) take a per-card lock, while
// batch writers (recalculation, topic color sync) take the global lock and
// run alone. The stores additionally guard every card write with a version
// compare-and-swap, so a write that raced past the locks is reported as a
// conflict rather than silently lost.
//
// Error handling:
//   - Expected conditions are returned as sentinel errors from the domain and
//     store packages and pass through unchanged
//   - Unexpected failures are wrapped in ServiceError with the operation name
//   - The API layer maps errors to HTTP status codes
package service
