package domain

import "time"

// LineItemStatus is the per-item completion state.
type LineItemStatus string

const (
	LineItemStatusPending LineItemStatus = "PENDING"
	LineItemStatusDone    LineItemStatus = "DONE"
)

// LineItem is one independently resolvable sub-task of a ticket. Items are
// persisted as individually addressable rows keyed by (ticket, position) so
// resolving one item never rewrites its siblings.
type LineItem struct {
	ID          string
	TicketID    string
	Position    int
	Code        string
	Description string
	Quantity    int
	Tag         string
	Application string
	Status      LineItemStatus
	Resolution  *ItemResolution
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ItemResolution records what closed a line item. Which optional fields are
// set depends on the ticket category's ResolutionKind.
type ItemResolution struct {
	ClosedAt      time.Time
	Price         *string
	PurchaseOrder *string
	DeliveryDate  *time.Time
	Note          *string
}
