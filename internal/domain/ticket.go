package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusReturned   TicketStatus = "RETURNED"
	TicketStatusResolved   TicketStatus = "RESOLVED"
)

// Valid reports whether the status is a known lifecycle state.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusReturned, TicketStatusResolved:
		return true
	}
	return false
}

// TicketPriority enumerates urgency labels. Priority is informational only
// and never affects which transitions are allowed.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityNormal   TicketPriority = "NORMAL"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Valid reports whether the priority is a known label.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// Ticket is the aggregate for service requests. Revision is the optimistic
// concurrency token: every persisted mutation is conditional on it and bumps
// it by one, so concurrent writers to the same ticket cannot silently
// overwrite each other.
type Ticket struct {
	ID             string
	ExternalKey    string
	RequesterName  string
	Title          string
	Description    string
	Category       TicketCategory
	Priority       TicketPriority
	Status         TicketStatus
	ReturnReason   *string
	AttachmentName *string
	AttachmentURL  *string
	Details        *TicketDetails
	Items          []LineItem
	Revision       int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasLineItems reports whether the ticket carries a line-item table.
func (t *Ticket) HasLineItems() bool {
	return len(t.Items) > 0
}

// PendingItems counts line items not yet resolved.
func (t *Ticket) PendingItems() int {
	pending := 0
	for i := range t.Items {
		if t.Items[i].Status != LineItemStatusDone {
			pending++
		}
	}
	return pending
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusReturned, TicketStatusResolved},
	TicketStatusInProgress: {TicketStatusOpen, TicketStatusReturned, TicketStatusResolved},
	TicketStatusReturned:   {TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved},
	TicketStatusResolved:   {TicketStatusOpen},
}

// CanTransition reports whether a manual status change from current to next
// is allowed. Resolving line items goes through the rollup instead and is
// not covered here.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// RollupStatus derives the ticket-level status from its line items: every
// item done means resolved, anything outstanding means in progress. Only
// meaningful for tickets that have line items.
func RollupStatus(items []LineItem) TicketStatus {
	for i := range items {
		if items[i].Status != LineItemStatusDone {
			return TicketStatusInProgress
		}
	}
	return TicketStatusResolved
}
