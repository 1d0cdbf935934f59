// Package events defines domain events and the per-aggregate buffer that
// holds them until a unit of work claims them for dispatch.
//
// Aggregates own a Buffer by composition and record an Event as the last step
// of every state change with externally meaningful consequences. Nothing is
// dispatched automatically: a use case has to hand the aggregate to the unit
// of work explicitly, after its business operation succeeded.
package events
