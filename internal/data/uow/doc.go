// Package uow implements the transactional unit of work.
//
// A Manager opens one native transaction per call, hands the callback a
// dbctx.Context bound to it, and settles it: commit on success, rollback on
// failure. Domain events that a use case marks through the Helper are queued
// on the transaction's record and published to the bus only after the commit
// is acknowledged. A watchdog reclaims the connection of any transaction that
// outlives its MaxExecutionTime; the callback's own result still reaches the
// caller, but nothing is committed or published for it.
package uow
