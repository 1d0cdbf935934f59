package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/data/repos/user"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo

var ErrUserNotFound = user.ErrUserNotFound

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

// Models lists every table the service owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&user.Row{},
	}
}
