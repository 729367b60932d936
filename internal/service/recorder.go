package service

import (
	"context"
	"time"

	"asthma_shield/internal/logger"
	"asthma_shield/internal/models"
	"asthma_shield/internal/repository"

	"github.com/google/uuid"
)

const recordTimeout = 3 * time.Second

// Publisher streams events beyond the local audit log.
type Publisher interface {
	Publish(ctx context.Context, e models.ShieldEvent) error
}

// EventRecorder writes audit events to the repository and, when set, a
// publisher. Recording never fails the caller; problems are logged.
type EventRecorder struct {
	repo repository.EventStore
	pub  Publisher
	log  *logger.Logger
	now  func() time.Time
}

func NewEventRecorder(repo repository.EventStore, pub Publisher, log *logger.Logger) *EventRecorder {
	if log == nil {
		log = logger.Nop()
	}
	return &EventRecorder{repo: repo, pub: pub, log: log, now: time.Now}
}

// Record appends one event. It detaches from ctx's cancellation so an event
// about a finished request or a shutdown still lands.
func (r *EventRecorder) Record(ctx context.Context, typ, description string, meta map[string]any) {
	if r == nil {
		return
	}
	e := models.ShieldEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  r.now().UTC(),
		Type:        typ,
		Description: description,
	}
	if len(meta) > 0 {
		e.Metadata = meta
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if r.repo != nil {
		if err := r.repo.Append(ctx, e); err != nil {
			r.log.Warnw("event_append_failed", "type", typ, "err", err)
		}
	}
	if r.pub != nil {
		if err := r.pub.Publish(ctx, e); err != nil {
			r.log.Warnw("event_publish_failed", "type", typ, "err", err)
		}
	}
}
