package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/ledger-backend/internal/data/repos"
	"github.com/yungbote/ledger-backend/internal/data/uow"
	"github.com/yungbote/ledger-backend/internal/domain/user"
	"github.com/yungbote/ledger-backend/internal/platform/dbctx"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

type BalanceService interface {
	// UpdateBalance adds amount (which may be negative) to the user's balance
	// and publishes user.balance.updated once the change is committed.
	UpdateBalance(ctx context.Context, id user.ID, amount int64) (*user.User, error)
	GetUser(ctx context.Context, id user.ID) (*user.User, error)
	CreateUser(ctx context.Context, balance int64) (*user.User, error)
}

type BalanceServiceOptions struct {
	MaxExecutionTime time.Duration
}

type balanceService struct {
	log      *logger.Logger
	uow      *uow.Helper
	userRepo repos.UserRepo
	maxExec  time.Duration
}

func NewBalanceService(log *logger.Logger, helper *uow.Helper, userRepo repos.UserRepo, opts BalanceServiceOptions) BalanceService {
	if log == nil {
		log = logger.NewNop()
	}
	return &balanceService{
		log:      log.With("service", "BalanceService"),
		uow:      helper,
		userRepo: userRepo,
		maxExec:  opts.MaxExecutionTime,
	}
}

func (s *balanceService) UpdateBalance(ctx context.Context, id user.ID, amount int64) (*user.User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", user.ErrInvalidID, id)
	}
	outcome := ""
	u, err := uow.Transactional(ctx, s.uow, func(dbc dbctx.Context) (*user.User, error) {
		u, err := s.userRepo.GetByIDForUpdate(dbc, id)
		if err != nil {
			return nil, err
		}
		if err := u.UpdateBalance(amount); err != nil {
			return nil, err
		}
		if err := s.userRepo.Save(dbc, u); err != nil {
			return nil, err
		}
		if err := s.uow.MarkAggregatesForEventDispatch(dbc, u); err != nil {
			return nil, err
		}
		return u, nil
	}, uow.Options{
		IsolationLevel:   uow.RepeatableRead,
		MaxExecutionTime: s.maxExec,
		OnSettled:        func(o string) { outcome = o },
	})
	log := s.log.WithCtx(ctx)
	if outcome == uow.OutcomeExpired {
		// The watchdog reclaimed the transaction: nothing was stored, whatever
		// the callback returned.
		log.Warn("balance update not committed: transaction expired",
			"user_id", int64(id), "amount", amount, "outcome", outcome, "error", err)
		return u, err
	}
	if err != nil {
		log.Debug("balance update failed", "user_id", int64(id), "amount", amount, "outcome", outcome, "error", err)
		return nil, err
	}
	log.Info("balance updated", "user_id", int64(id), "amount", amount, "balance", u.Balance(), "outcome", outcome)
	return u, nil
}

func (s *balanceService) GetUser(ctx context.Context, id user.ID) (*user.User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", user.ErrInvalidID, id)
	}
	return uow.Transactional(ctx, s.uow, func(dbc dbctx.Context) (*user.User, error) {
		return s.userRepo.GetByID(dbc, id)
	}, uow.Options{MaxExecutionTime: s.maxExec})
}

func (s *balanceService) CreateUser(ctx context.Context, balance int64) (*user.User, error) {
	if balance < 0 {
		return nil, fmt.Errorf("%w: %d", user.ErrInvalidBalance, balance)
	}
	u, err := uow.Transactional(ctx, s.uow, func(dbc dbctx.Context) (*user.User, error) {
		return s.userRepo.Create(dbc, balance)
	}, uow.Options{MaxExecutionTime: s.maxExec})
	if err != nil {
		return nil, err
	}
	s.log.WithCtx(ctx).Info("user created", "user_id", int64(u.ID()), "balance", u.Balance())
	return u, nil
}
