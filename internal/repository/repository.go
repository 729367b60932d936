package repository

import (
	"context"
	"database/sql"
	"time"

	"asthma_shield/internal/models"
)

// OperatorStore keeps the API operators and their password hashes.
type OperatorStore interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// EventStore is the append-only audit trail. List bounds are inclusive and
// a zero bound is open.
type EventStore interface {
	Append(ctx context.Context, e models.ShieldEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ShieldEvent, error)
}

// Repository groups the sqlite-backed stores sharing one connection pool.
type Repository struct {
	Events    EventStore
	Operators OperatorStore
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Events:    NewEventSQLite(db),
		Operators: NewOperatorSQLite(db),
	}
}
