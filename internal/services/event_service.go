package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/marketplace-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Event types recorded by the services.
const (
	EventUserSignup     = "user.signup"
	EventCategoryCreate = "category.create"
	EventProductCreate  = "product.create"
	EventProductDelete  = "product.delete"
)

const (
	defaultEventLimit = 20
	maxEventLimit     = 100
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, subjectID *string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
	PruneEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventService records marketplace activity.
type EventService struct {
	db  *sql.DB
	now func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db, now: time.Now}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, subjectID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		SubjectID: subjectID,
		CreatedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, level, message, subject_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message, event.SubjectID, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// GetRecentEvents retrieves the most recent events. A non-positive limit
// means the default; limits above the maximum are capped.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, level, message, subject_id, created_at FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var subjectID sql.NullString
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &subjectID, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if subjectID.Valid {
			event.SubjectID = &subjectID.String
		}
		event.CreatedAt = event.CreatedAt.UTC()
		events = append(events, event)
	}
	return events, rows.Err()
}

// PruneEventsBefore deletes events created before cutoff and returns how many were removed.
func (s *EventService) PruneEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}

// recordEvent stores an activity event. Failures are logged and never
// surface to the caller.
func recordEvent(ctx context.Context, events EventServiceProvider, eventType, message string, subjectID string) {
	if events == nil {
		return
	}
	if err := events.CreateEvent(ctx, eventType, "info", message, &subjectID); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Str("subject_id", subjectID).Msg("Failed to record event")
	}
}
