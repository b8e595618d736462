package events

import (
	"context"

	"github.com/bookstore/services/bookclub/internal/db"
)

// Event types, also used as routing keys
const (
	EventTypeBookCreated      = "bookclub.book.created"
	EventTypeBookUpdated      = "bookclub.book.updated"
	EventTypeBookDeleted      = "bookclub.book.deleted"
	EventTypeCommentAdded     = "bookclub.comment.added"
	EventTypeCommentEdited    = "bookclub.comment.edited"
	EventTypeCommentDeleted   = "bookclub.comment.deleted"
	EventTypeStatusChanged    = "bookclub.shelf.status_changed"
	EventTypeShelfInitialized = "bookclub.shelf.initialized"
	eventVersion              = "1.0.0"
)

// Event represents a domain event
type Event struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	EventVersion  string                 `json:"event_version"`
	Timestamp     string                 `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload map[string]interface{}) error
	IsHealthy() bool
	Close() error
}

type correlationKey struct{}

// WithCorrelationID returns a copy of ctx carrying id
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id stored in ctx, if any
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// BookPayload describes a book in event payloads
func BookPayload(book *db.Book) map[string]interface{} {
	return map[string]interface{}{
		"book_id":     book.ID,
		"title":       book.Title,
		"author":      book.Author,
		"description": book.Description,
		"genre":       book.Genre,
	}
}

// BookUpdatedPayload carries only the changed fields of book
func BookUpdatedPayload(book *db.Book, fieldsChanged []string) map[string]interface{} {
	full := BookPayload(book)
	payload := map[string]interface{}{
		"book_id":        book.ID,
		"fields_changed": fieldsChanged,
	}
	for _, field := range fieldsChanged {
		payload[field] = full[field]
	}
	return payload
}

// CommentPayload describes a comment in event payloads
func CommentPayload(comment *db.Comment) map[string]interface{} {
	return map[string]interface{}{
		"comment_id": comment.ID,
		"book_id":    comment.BookID,
		"content":    comment.Content,
		"rating":     comment.Rating,
	}
}

// StatusChangedPayload describes a reading status transition
func StatusChangedPayload(entry *db.UsersBook, previous db.ReadingStatus) map[string]interface{} {
	return map[string]interface{}{
		"users_book_id":   entry.ID,
		"username":        entry.Username,
		"book_id":         entry.BookID,
		"previous_status": string(previous),
		"status":          string(entry.Status),
	}
}

// NopPublisher drops every event. It stands in when events are disabled.
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(context.Context, string, map[string]interface{}) error { return nil }

// IsHealthy always reports true
func (NopPublisher) IsHealthy() bool { return true }

// Close does nothing
func (NopPublisher) Close() error { return nil }
