package uow

import (
	"context"

	"github.com/yungbote/ledger-backend/internal/platform/dbctx"
)

// TxRunner provides a shared transaction boundary primitive for writes that
// produce no result.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

var _ TxRunner = (*Helper)(nil)

// InTx runs fn in a READ COMMITTED unit of work.
func (h *Helper) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	_, err := h.RunTransactional(ctx, func(dbc dbctx.Context) (any, error) {
		return nil, fn(dbc)
	}, Options{})
	return err
}
