package usage

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"teamy/internal/domain/usage"
	"teamy/internal/metrics"
	"teamy/pkg/errors"
	"teamy/pkg/logger"
)

// EventPublisher ships ledger events to the event stream
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// NoopPublisher drops events; used when Kafka is not configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, topic string, key string, event interface{}) error {
	return nil
}

// CommandRecordedEvent is published after every successful ledger write
type CommandRecordedEvent struct {
	EventID    string    `json:"event_id"`
	UserID     int64     `json:"user_id"`
	Command    string    `json:"command"`
	Tracked    bool      `json:"tracked"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Service handles the usage ledger: recording, export and reset
type Service struct {
	repository usage.Repository
	publisher  EventPublisher
	topic      string
	log        *logger.Logger
	now        func() time.Time
}

// NewService creates a new usage service. A nil publisher disables events.
func NewService(
	repository usage.Repository,
	publisher EventPublisher,
	topic string,
	log *logger.Logger,
) *Service {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Service{
		repository: repository,
		publisher:  publisher,
		topic:      topic,
		log:        log.With("component", "usage_service"),
		now:        time.Now,
	}
}

// RecordEvent ensures the user's record exists and increments the counter
// for command when it is tracked. Untracked names are not an error.
func (s *Service) RecordEvent(ctx context.Context, userID int64, command string) error {
	cmd, tracked := usage.ParseCommand(command)
	name := usage.NormalizeName(command)

	var err error
	if tracked {
		name = cmd.Name()
		err = s.repository.Increment(ctx, userID, cmd)
	} else {
		err = s.repository.Touch(ctx, userID)
	}
	if err != nil {
		metrics.UsageErrors.WithLabelValues("record").Inc()
		return errors.Wrapf(err, "failed to record %q for user %d", name, userID)
	}

	metrics.UsageEvents.WithLabelValues(name, strconv.FormatBool(tracked)).Inc()
	s.log.Debugw("Usage recorded", "user_id", userID, "command", name, "tracked", tracked)

	s.publish(ctx, CommandRecordedEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		Command:    name,
		Tracked:    tracked,
		RecordedAt: s.now().UTC(),
	})

	return nil
}

// publish never fails the caller; the ledger row is already committed
func (s *Service) publish(ctx context.Context, event CommandRecordedEvent) {
	if err := s.publisher.Publish(ctx, s.topic, strconv.FormatInt(event.UserID, 10), event); err != nil {
		metrics.KafkaMessages.WithLabelValues(s.topic, "error").Inc()
		s.log.Warnw("Failed to publish usage event", "event_id", event.EventID, "error", err)
		return
	}
	metrics.KafkaMessages.WithLabelValues(s.topic, "success").Inc()
}

// ExportCSV writes every record as CSV: a header of all columns, then one
// row per user ordered by user_id. Returns the number of data rows.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.repository.List(ctx)
	if err != nil {
		metrics.UsageErrors.WithLabelValues("export").Inc()
		return 0, errors.Wrap(err, "failed to list usage records")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(usage.Columns()); err != nil {
		return 0, errors.Wrap(err, "failed to write csv header")
	}

	commands := usage.Commands()
	row := make([]string, len(commands)+1)
	for _, rec := range records {
		row[0] = strconv.FormatInt(rec.UserID, 10)
		for i, cmd := range commands {
			row[i+1] = strconv.FormatInt(rec.Count(cmd), 10)
		}
		if err := cw.Write(row); err != nil {
			return 0, errors.Wrap(err, "failed to write csv row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, errors.Wrap(err, "failed to flush csv")
	}

	s.log.Infow("Usage exported", "rows", len(records))
	return len(records), nil
}

// ClearAll irreversibly deletes every usage record
func (s *Service) ClearAll(ctx context.Context) (int, error) {
	removed, err := s.repository.DeleteAll(ctx)
	if err != nil {
		metrics.UsageErrors.WithLabelValues("clear").Inc()
		return 0, errors.Wrap(err, "failed to clear usage records")
	}

	s.log.Infow("Usage ledger cleared", "removed", removed)
	return int(removed), nil
}

// Get returns the record for userID
func (s *Service) Get(ctx context.Context, userID int64) (*usage.Record, error) {
	rec, err := s.repository.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get usage for user %d", userID)
	}
	return rec, nil
}

// Count returns the number of users in the ledger
func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.repository.Count(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count usage records")
	}
	return n, nil
}
