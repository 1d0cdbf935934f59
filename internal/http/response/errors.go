package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	userrepo "github.com/yungbote/ledger-backend/internal/data/repos/user"
	"github.com/yungbote/ledger-backend/internal/data/uow"
	"github.com/yungbote/ledger-backend/internal/domain/aggregates"
	"github.com/yungbote/ledger-backend/internal/domain/user"
)

// ErrorStatus maps a use-case error to an HTTP status and a stable code.
func ErrorStatus(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, user.ErrInsufficientBalance):
		return http.StatusConflict, "insufficient_balance"
	case errors.Is(err, userrepo.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, user.ErrInvalidID), errors.Is(err, user.ErrInvalidBalance):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, uow.ErrNotReady), errors.Is(err, uow.ErrShuttingDown),
		errors.Is(err, uow.ErrTransactionNotActive):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "unavailable"
	}
	switch aggregates.CodeOf(err) {
	case aggregates.CodeRetryable, aggregates.CodeConflict:
		return http.StatusConflict, "retry"
	case aggregates.CodePreconditionFailed:
		return http.StatusPreconditionFailed, "precondition_failed"
	}
	return http.StatusInternalServerError, "internal"
}

// RespondMappedError writes err with the status ErrorStatus picks. Internal
// errors are not echoed to the client.
func RespondMappedError(c *gin.Context, err error) {
	status, code := ErrorStatus(err)
	if status >= http.StatusInternalServerError && code == "internal" {
		_ = c.Error(err)
		RespondError(c, status, code, errors.New("internal error"))
		return
	}
	RespondError(c, status, code, err)
}
