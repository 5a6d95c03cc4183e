package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/quill-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Event types recorded by the services.
const (
	EventUserRegister  = "user.register"
	EventUserLogin     = "user.login"
	EventUserLogout    = "user.logout"
	EventPostCreate    = "post.create"
	EventPostDelete    = "post.delete"
	EventCommentCreate = "comment.create"
	EventTokensPurge   = "tokens.purge"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, eventType, level, message string, actorID *string) error
	GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error)
}

// EventService provides business logic for the audit event log.
type EventService struct {
	db *sql.DB
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(ctx context.Context, eventType, level, message string, actorID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		ActorID:   actorID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, type, level, message, actor_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		event.ID, event.Type, event.Level, event.Message, event.ActorID, event.CreatedAt)
	return err
}

// GetRecentEvents retrieves the most recent events from the database.
func (s *EventService) GetRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, type, level, message, actor_id, created_at FROM events ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		var actorID sql.NullString
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &actorID, &event.CreatedAt); err != nil {
			return nil, err
		}
		if actorID.Valid {
			event.ActorID = &actorID.String
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// RecordEvent writes an audit event; failures are logged, never returned.
func RecordEvent(ctx context.Context, events EventServiceProvider, eventType, level, message string, actorID string) {
	if events == nil {
		return
	}
	var actor *string
	if actorID != "" {
		actor = &actorID
	}
	if err := events.CreateEvent(context.WithoutCancel(ctx), eventType, level, message, actor); err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("Failed to record event")
	}
}
