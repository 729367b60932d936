package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"asthma_shield/internal/models"
	"asthma_shield/internal/repository"
)

// MaxLogLimit caps LogFilter.Limit.
const MaxLogLimit = 1000

var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must be <= to")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrInvalidLimit     = errors.New("invalid limit")
)

// LogFilter narrows an audit log query.
type LogFilter struct {
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // "" or one of the models.Event* types
	Limit int       // keep only the newest Limit events; 0 means all
}

// EventLogService reads the shield audit trail.
type EventLogService struct {
	events repository.EventStore
}

func NewEventLogService(events repository.EventStore) *EventLogService {
	return &EventLogService{events: events}
}

var eventTypes = map[string]bool{
	models.EventCommand:           true,
	models.EventCommandFailed:     true,
	models.EventSequenceStarted:   true,
	models.EventSequenceCompleted: true,
	models.EventSequenceFailed:    true,
	models.EventSequenceRejected:  true,
	models.EventStateUpdate:       true,
}

// normalize converts bounds to UTC, canonicalizes the type and validates
// the result.
func (f LogFilter) normalize() (LogFilter, error) {
	out := LogFilter{
		From:  utc(f.From),
		To:    utc(f.To),
		Type:  strings.ToUpper(strings.TrimSpace(f.Type)),
		Limit: f.Limit,
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.From.After(out.To) {
		return LogFilter{}, ErrInvalidTimeRange
	}
	if out.Type != "" && !eventTypes[out.Type] {
		return LogFilter{}, fmt.Errorf("%w: %q", ErrUnknownEventType, f.Type)
	}
	if out.Limit < 0 || out.Limit > MaxLogLimit {
		return LogFilter{}, fmt.Errorf("%w: %d (max %d)", ErrInvalidLimit, f.Limit, MaxLogLimit)
	}
	return out, nil
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// List returns matching events oldest first.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.ShieldEvent, error) {
	nf, err := f.normalize()
	if err != nil {
		return nil, err
	}
	events, err := s.events.List(ctx, nf.From, nf.To, nf.Type)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if nf.Limit > 0 && len(events) > nf.Limit {
		events = events[len(events)-nf.Limit:]
	}
	return events, nil
}
