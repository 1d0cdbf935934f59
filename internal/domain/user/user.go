package user

import (
	"errors"
	"fmt"

	"github.com/yungbote/ledger-backend/internal/domain/aggregates"
	"github.com/yungbote/ledger-backend/internal/domain/events"
)

const BalanceUpdatedEventName = "user.balance.updated"

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidID           = errors.New("user id must be positive")
	ErrInvalidBalance      = errors.New("balance must not be negative")
)

var Contract = aggregates.Contract{
	Name:       "User",
	EventNames: []string{BalanceUpdatedEventName},
}

type ID int64

// BalanceUpdated is the payload of user.balance.updated.
type BalanceUpdated struct {
	ID         ID    `json:"id"`
	NewBalance int64 `json:"newBalance"`
}

// User is the balance-holding aggregate.
type User struct {
	id      ID
	balance int64
	events  events.Buffer
}

// New rebuilds a user from persisted state.
func New(id ID, balance int64) (*User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	if balance < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBalance, balance)
	}
	return &User{id: id, balance: balance}, nil
}

func (u *User) Contract() aggregates.Contract { return Contract }

func (u *User) ID() ID         { return u.id }
func (u *User) Balance() int64 { return u.balance }

// UpdateBalance applies delta and records user.balance.updated. The balance is
// left untouched, and no event is recorded, when delta would make it negative
// or overflow int64.
func (u *User) UpdateBalance(delta int64) error {
	next := u.balance + delta
	if (delta > 0 && next < u.balance) || (delta < 0 && next > u.balance) {
		return fmt.Errorf("%w: %d%+d overflows", ErrInvalidBalance, u.balance, delta)
	}
	if next < 0 {
		return aggregates.NewError(
			aggregates.CodeInvariantViolation,
			"User.UpdateBalance",
			fmt.Sprintf("balance %d cannot absorb delta %d", u.balance, delta),
			ErrInsufficientBalance,
		)
	}
	u.balance = next
	u.events.Record(events.New(BalanceUpdatedEventName, BalanceUpdated{
		ID:         u.id,
		NewBalance: u.balance,
	}))
	return nil
}

// DrainEvents hands the recorded events to the caller and clears them.
func (u *User) DrainEvents() []events.Event { return u.events.Drain() }

// PendingEvents returns the recorded events without claiming them.
func (u *User) PendingEvents() []events.Event { return u.events.Pending() }
