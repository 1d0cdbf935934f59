package user

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/yungbote/ledger-backend/internal/domain/user"
	"github.com/yungbote/ledger-backend/internal/platform/ctxutil"
	"github.com/yungbote/ledger-backend/internal/platform/dbctx"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

var (
	ErrUserNotFound = errors.New("user not found")
	errNoConnection = errors.New("user repo: no transaction and no base connection")
)

// Row is the persisted shape of a user.
type Row struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Balance   int64     `gorm:"column:balance;not null;default:0;check:chk_users_balance_non_negative,balance >= 0"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (Row) TableName() string { return "users" }

type UserRepo interface {
	Create(dbc dbctx.Context, balance int64) (*domain.User, error)
	GetByID(dbc dbctx.Context, id domain.ID) (*domain.User, error)
	// GetByIDForUpdate reads with SELECT ... FOR UPDATE; it only locks inside a transaction.
	GetByIDForUpdate(dbc dbctx.Context, id domain.ID) (*domain.User, error)
	Save(dbc dbctx.Context, u *domain.User) error
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewUserRepo builds the repo. db may be nil when every call carries a
// transaction in dbc.
func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	repoLog := baseLog.With("repo", "UserRepo")
	return &userRepo{db: db, log: repoLog}
}

func (r *userRepo) conn(dbc dbctx.Context) (*gorm.DB, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if transaction == nil {
		return nil, errNoConnection
	}
	return transaction.WithContext(ctxutil.Default(dbc.Ctx)), nil
}

func (r *userRepo) Create(dbc dbctx.Context, balance int64) (*domain.User, error) {
	transaction, err := r.conn(dbc)
	if err != nil {
		return nil, err
	}
	if balance < 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidBalance, balance)
	}
	row := &Row{Balance: balance}
	if err := transaction.Create(row).Error; err != nil {
		return nil, err
	}
	return toDomain(row)
}

func (r *userRepo) GetByID(dbc dbctx.Context, id domain.ID) (*domain.User, error) {
	transaction, err := r.conn(dbc)
	if err != nil {
		return nil, err
	}
	return r.take(transaction, id)
}

func (r *userRepo) GetByIDForUpdate(dbc dbctx.Context, id domain.ID) (*domain.User, error) {
	transaction, err := r.conn(dbc)
	if err != nil {
		return nil, err
	}
	if !dbc.InTx() {
		r.log.WithCtx(dbc.Ctx).Warn("locking read outside a unit of work; lock is released immediately", "user_id", int64(id))
	}
	return r.take(transaction.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *userRepo) take(transaction *gorm.DB, id domain.ID) (*domain.User, error) {
	var row Row
	if err := transaction.Where("id = ?", int64(id)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUserNotFound, id)
		}
		return nil, err
	}
	return toDomain(&row)
}

func (r *userRepo) Save(dbc dbctx.Context, u *domain.User) error {
	if u == nil {
		return nil
	}
	transaction, err := r.conn(dbc)
	if err != nil {
		return err
	}
	res := transaction.Model(&Row{}).
		Where("id = ?", int64(u.ID())).
		Updates(map[string]interface{}{
			"balance":    u.Balance(),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrUserNotFound, u.ID())
	}
	return nil
}

func toDomain(row *Row) (*domain.User, error) {
	return domain.New(domain.ID(row.ID), row.Balance)
}
