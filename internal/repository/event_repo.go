package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"asthma_shield/internal/models"

	"github.com/google/uuid"
)

// sqliteTimestamp sorts lexically in the same order as time.
const sqliteTimestamp = "2006-01-02 15:04:05"

const (
	insertEventSQL = `INSERT INTO shield_events (id, occurred_at, type, message, meta) VALUES (?, ?, ?, ?, ?)`
	selectEventSQL = `SELECT id, occurred_at, type, message, meta FROM shield_events`
	orderEventsSQL = ` ORDER BY occurred_at ASC`
)

// EventSQLite stores ShieldEvents in the shield_events table. Metadata is
// kept as JSON text.
type EventSQLite struct {
	db *sql.DB
}

var _ EventStore = (*EventSQLite)(nil)

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db} }

func canonicalType(t string) string { return strings.ToUpper(strings.TrimSpace(t)) }

// Append inserts e, assigning an ID and timestamp when they are missing.
func (r *EventSQLite) Append(ctx context.Context, e models.ShieldEvent) error {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	meta, err := encodeMeta(e.Metadata)
	if err != nil {
		return fmt.Errorf("event %s metadata: %w", e.EventID, err)
	}

	if _, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID, e.OccurredAt.UTC().Format(sqliteTimestamp), canonicalType(e.Type), e.Description, meta,
	); err != nil {
		return fmt.Errorf("insert event %s: %w", e.EventID, err)
	}
	return nil
}

// List returns events oldest first. typ is matched case-insensitively.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]models.ShieldEvent, error) {
	where, args := eventWhere(from, to, canonicalType(typ))
	rows, err := r.db.QueryContext(ctx, selectEventSQL+where+orderEventsSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []models.ShieldEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	if out == nil {
		out = []models.ShieldEvent{}
	}
	return out, nil
}

// eventWhere builds the WHERE clause for List, or "" when nothing filters.
func eventWhere(from, to time.Time, typ string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		conds = append(conds, cond)
		args = append(args, arg)
	}
	if !from.IsZero() {
		add("occurred_at >= ?", from.UTC().Format(sqliteTimestamp))
	}
	if !to.IsZero() {
		add("occurred_at <= ?", to.UTC().Format(sqliteTimestamp))
	}
	if typ != "" {
		add("type = ?", typ)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanEvent(rows *sql.Rows) (models.ShieldEvent, error) {
	var (
		ev   models.ShieldEvent
		meta sql.NullString
	)
	if err := rows.Scan(&ev.EventID, &ev.OccurredAt, &ev.Type, &ev.Description, &meta); err != nil {
		return ev, fmt.Errorf("scan event: %w", err)
	}
	ev.OccurredAt = ev.OccurredAt.UTC()
	ev.Metadata = decodeMeta(meta)
	return ev, nil
}

// encodeMeta returns nil (SQL NULL) for nil metadata, JSON text otherwise.
func encodeMeta(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// decodeMeta parses stored JSON; text that is not JSON comes back as a string.
func decodeMeta(ns sql.NullString) any {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(ns.String), &v); err != nil {
		return ns.String
	}
	return v
}
