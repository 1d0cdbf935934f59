package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// TxID is set when the context was produced by a unit of work; it keys the
// transaction's pending domain events.
type Context struct {
	Ctx  context.Context
	Tx   *gorm.DB
	TxID string
}

// InTx reports whether the context is bound to an open unit of work.
func (c Context) InTx() bool {
	return c.Tx != nil && c.TxID != ""
}
