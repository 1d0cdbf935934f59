package uow

import (
	"database/sql"
	"fmt"
	"strings"
)

// IsolationLevel is the SQL isolation guarantee requested for a unit of work.
type IsolationLevel string

const (
	ReadUncommitted IsolationLevel = "READ UNCOMMITTED"
	ReadCommitted   IsolationLevel = "READ COMMITTED"
	RepeatableRead  IsolationLevel = "REPEATABLE READ"
	Serializable    IsolationLevel = "SERIALIZABLE"
)

func (l IsolationLevel) String() string {
	if l == "" {
		return string(ReadCommitted)
	}
	return string(l)
}

// SQL maps the level onto database/sql. Unknown levels map to the driver default.
func (l IsolationLevel) SQL() sql.IsolationLevel {
	switch l {
	case ReadUncommitted:
		return sql.LevelReadUncommitted
	case ReadCommitted, "":
		return sql.LevelReadCommitted
	case RepeatableRead:
		return sql.LevelRepeatableRead
	case Serializable:
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

// ParseIsolationLevel accepts "repeatable read", "REPEATABLE_READ", "repeatable-read" and so on.
func ParseIsolationLevel(raw string) (IsolationLevel, error) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	norm = strings.Join(strings.Fields(norm), " ")
	switch IsolationLevel(norm) {
	case "":
		return ReadCommitted, nil
	case ReadUncommitted, ReadCommitted, RepeatableRead, Serializable:
		return IsolationLevel(norm), nil
	}
	return "", fmt.Errorf("uow: unknown isolation level %q", raw)
}
