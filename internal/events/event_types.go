package events

import (
	"time"

	"github.com/mov-ti/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketItemResolved  EventType = "ticket_item_resolved"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category      domain.TicketCategory `json:"category"`
	Priority      domain.TicketPriority `json:"priority"`
	Title         string                `json:"title"`
	RequesterName string                `json:"requester_name"`
	ItemCount     int                   `json:"item_count"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reason    *string             `json:"reason,omitempty"`
}

// TicketItemResolvedPayload payload.
type TicketItemResolvedPayload struct {
	Position       int  `json:"position"`
	PendingItems   int  `json:"pending_items"`
	TicketResolved bool `json:"ticket_resolved"`
}
