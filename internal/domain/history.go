package domain

import "time"

// StatusChange is one audit record of a ticket transition. Return reasons
// live here permanently even after a reopen clears the ticket's live field.
type StatusChange struct {
	ID        string
	TicketID  string
	OldStatus TicketStatus
	NewStatus TicketStatus
	Reason    *string
	ChangedBy *string
	CreatedAt time.Time
}
