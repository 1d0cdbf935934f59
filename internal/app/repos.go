package app

import (
	"github.com/yungbote/ledger-backend/internal/data/repos"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

type Repos struct {
	User repos.UserRepo
}

// wireRepos builds repositories without a base connection: every call runs
// inside a unit of work and carries its transaction.
func wireRepos(log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User: repos.NewUserRepo(nil, log),
	}
}
