package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mov-ti/helpdesk-service/internal/domain"
	"github.com/mov-ti/helpdesk-service/internal/events"
	"github.com/mov-ti/helpdesk-service/internal/repository"
	"github.com/mov-ti/helpdesk-service/internal/storage"
	apperrors "github.com/mov-ti/helpdesk-service/pkg/util/errorutil"
)

// TicketService is the lifecycle manager: it owns creation validation,
// manual status transitions, per-item resolution and the status rollup.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.StatusHistoryRepository
	store      storage.ObjectStore
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.StatusHistoryRepository
	Store       storage.ObjectStore
	Dispatcher  events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
	}
}

// LineItemInput describes one sub-task at creation time.
type LineItemInput struct {
	Code        string
	Description string
	Quantity    int
	Tag         string
	Application string
}

// AttachmentInput carries an uploaded document.
type AttachmentInput struct {
	FileName    string
	ContentType string
	Data        []byte
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	RequesterName string
	Category      domain.TicketCategory
	Title         string
	Description   string
	Priority      domain.TicketPriority
	Items         []LineItemInput
	Goods         *domain.GoodsDetails
	Report        *domain.ReportDetails
	Attachment    *AttachmentInput
}

// ResolutionInput is the per-item resolution payload. Revision, when
// non-zero, is the ticket revision the caller loaded; a mismatch is a
// conflict.
type ResolutionInput struct {
	Price         string
	PurchaseOrder string
	DeliveryDate  *time.Time
	Note          string
	Revision      int64
}

// TicketListFilter describes listing parameters.
type TicketListFilter struct {
	Category        *domain.TicketCategory
	ExcludeCategory *domain.TicketCategory
	Status          *domain.TicketStatus
	SearchTerm      *string
	Limit           int
	Offset          int
}

// CreateTicket validates the draft, uploads the attachment when present and
// persists the ticket in state open. Upload and insert behave as one unit:
// an insert failure deletes the uploaded object again.
func (s *TicketService) CreateTicket(ctx context.Context, actorID string, input TicketCreateInput) (*domain.Ticket, error) {
	if err := s.validateCreate(&input); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ExternalKey:   generateTicketKey(),
		RequesterName: strings.TrimSpace(input.RequesterName),
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Category:      input.Category,
		Priority:      input.Priority,
		Status:        domain.TicketStatusOpen,
	}
	if ticket.Title == "" {
		ticket.Title = input.Category.Label()
	}
	if input.Goods != nil || input.Report != nil {
		ticket.Details = &domain.TicketDetails{Goods: input.Goods, Report: input.Report}
	}
	for i, item := range input.Items {
		ticket.Items = append(ticket.Items, domain.LineItem{
			Position:    i,
			Code:        strings.TrimSpace(item.Code),
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			Tag:         strings.TrimSpace(item.Tag),
			Application: strings.TrimSpace(item.Application),
			Status:      domain.LineItemStatusPending,
		})
	}

	var uploadedKey string
	if input.Attachment != nil {
		if s.store == nil {
			return nil, apperrors.NewValidationError("attachment storage not configured", nil)
		}
		key := storage.AttachmentKey(input.Attachment.FileName)
		if err := s.store.Put(ctx, key, input.Attachment.Data, input.Attachment.ContentType); err != nil {
			return nil, apperrors.NewDomainError("UPLOAD_FAILED", "attachment upload failed", 502, map[string]any{
				"attachment": input.Attachment.FileName,
			})
		}
		uploadedKey = key
		name := input.Attachment.FileName
		url := s.store.PublicURL(key)
		ticket.AttachmentName = &name
		ticket.AttachmentURL = &url
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		if uploadedKey != "" {
			// best effort: do not leave an orphaned object behind
			_ = s.store.Delete(ctx, uploadedKey)
		}
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.TicketCreatedPayload{
			Category:      ticket.Category,
			Priority:      ticket.Priority,
			Title:         ticket.Title,
			RequesterName: ticket.RequesterName,
			ItemCount:     len(ticket.Items),
		},
	})
	return ticket, nil
}

func (s *TicketService) validateCreate(input *TicketCreateInput) error {
	missing := map[string]any{}
	if strings.TrimSpace(input.RequesterName) == "" {
		missing["requester_name"] = "required"
	}
	if !input.Category.Valid() {
		missing["category"] = "unknown category"
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityNormal
	}
	if !input.Priority.Valid() {
		missing["priority"] = "unknown priority"
	}
	if strings.TrimSpace(input.Description) == "" {
		missing["description"] = "required"
	}
	if input.Category.RequiresAttachment() && input.Attachment == nil {
		missing["attachment"] = "registration document required for this category"
	}
	details := &domain.TicketDetails{Goods: input.Goods, Report: input.Report}
	if !details.MatchesCategory(input.Category) {
		missing["details"] = "do not match the category"
	}
	if input.Category == domain.CategoryReportControl {
		switch {
		case input.Report == nil:
			missing["report"] = "required"
		default:
			if strings.TrimSpace(input.Report.Company) == "" {
				missing["report.company"] = "required"
			}
			if !input.Report.Action.Valid() {
				missing["report.action"] = "unknown action"
			}
		}
	}
	if input.Goods != nil && !input.Goods.Allocation.Valid() {
		missing["goods.allocation"] = "unknown allocation"
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.Description) == "" {
			missing["items."+strconv.Itoa(i)+".description"] = "required"
		}
		if item.Quantity <= 0 {
			missing["items."+strconv.Itoa(i)+".quantity"] = "must be positive"
		}
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("invalid ticket draft", missing)
	}
	return nil
}

// GetTicket fetches a ticket with its items.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ListTickets returns tickets matching the filter, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Category:        filter.Category,
		ExcludeCategory: filter.ExcludeCategory,
		Status:          filter.Status,
		SearchTerm:      filter.SearchTerm,
		Limit:           filter.Limit,
		Offset:          filter.Offset,
	})
}

// History lists the ticket's transition audit trail.
func (s *TicketService) History(ctx context.Context, ticketID string) ([]domain.StatusChange, error) {
	if s.history == nil {
		return []domain.StatusChange{}, nil
	}
	return s.history.ListByTicket(ctx, ticketID)
}

// ResolveItem marks one pending line item done with a category-shaped
// resolution payload and rolls the ticket status up from its items. It
// reports whether this resolution resolved the whole ticket.
func (s *TicketService) ResolveItem(ctx context.Context, actorID, ticketID string, index int, input ResolutionInput) (*domain.Ticket, bool, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, false, apperrors.MapError(err)
	}
	if input.Revision != 0 && input.Revision != ticket.Revision {
		return nil, false, apperrors.NewStaleWrite()
	}
	if ticket.Status == domain.TicketStatusResolved {
		return nil, false, apperrors.NewValidationError("ticket already resolved", nil)
	}
	if index < 0 || index >= len(ticket.Items) {
		return nil, false, apperrors.NewValidationError("item index out of range", map[string]any{
			"index": index,
		})
	}
	item := &ticket.Items[index]
	if item.Status == domain.LineItemStatusDone {
		return nil, false, apperrors.NewValidationError("item already resolved", map[string]any{
			"index": index,
		})
	}

	resolution, err := buildResolution(ticket.Category, input)
	if err != nil {
		return nil, false, err
	}

	oldStatus := ticket.Status
	item.Status = domain.LineItemStatusDone
	item.Resolution = resolution
	ticket.Status = domain.RollupStatus(ticket.Items)
	ticket.ReturnReason = nil

	if err := s.tickets.ResolveItem(ctx, ticket, index); err != nil {
		return nil, false, apperrors.MapError(err)
	}

	if oldStatus != ticket.Status {
		s.recordStatusChange(ctx, actorID, ticket.ID, oldStatus, ticket.Status, nil)
	}
	resolved := ticket.Status == domain.TicketStatusResolved
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketItemResolved,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.TicketItemResolvedPayload{
			Position:       index,
			PendingItems:   ticket.PendingItems(),
			TicketResolved: resolved,
		},
	})
	return ticket, resolved, nil
}

func buildResolution(category domain.TicketCategory, input ResolutionInput) (*domain.ItemResolution, error) {
	resolution := &domain.ItemResolution{ClosedAt: time.Now()}
	switch category.ResolutionKind() {
	case domain.ResolutionKindPrice:
		price := strings.TrimSpace(input.Price)
		if price == "" {
			return nil, apperrors.NewValidationError("resolution incomplete", map[string]any{
				"price": "required for quotes",
			})
		}
		resolution.Price = &price
	case domain.ResolutionKindPurchaseOrder:
		missing := map[string]any{}
		po := strings.TrimSpace(input.PurchaseOrder)
		if po == "" {
			missing["purchase_order"] = "required for purchases"
		}
		if input.DeliveryDate == nil {
			missing["delivery_date"] = "required for purchases"
		}
		if len(missing) > 0 {
			return nil, apperrors.NewValidationError("resolution incomplete", missing)
		}
		resolution.PurchaseOrder = &po
		resolution.DeliveryDate = input.DeliveryDate
	default:
		note := strings.TrimSpace(input.Note)
		if note == "" {
			return nil, apperrors.NewValidationError("resolution incomplete", map[string]any{
				"note": "required",
			})
		}
		resolution.Note = &note
	}
	return resolution, nil
}

// SetStatus applies a manual transition: in progress, returned (with a
// reason), resolved for item-less tickets, or reopen to open. Reopening
// clears the live return reason; the history keeps it.
func (s *TicketService) SetStatus(ctx context.Context, actorID, ticketID string, newStatus domain.TicketStatus, reason string, revision int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if revision != 0 && revision != ticket.Revision {
		return nil, apperrors.NewStaleWrite()
	}
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	if !domain.CanTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}
	reason = strings.TrimSpace(reason)
	if newStatus == domain.TicketStatusReturned && reason == "" {
		return nil, apperrors.NewValidationError("return reason required", map[string]any{
			"return_reason": "required",
		})
	}
	if newStatus == domain.TicketStatusResolved && ticket.HasLineItems() {
		return nil, apperrors.NewValidationError("tickets with line items resolve through their items", map[string]any{
			"pending_items": ticket.PendingItems(),
		})
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	if newStatus == domain.TicketStatusReturned {
		ticket.ReturnReason = &reason
	} else {
		ticket.ReturnReason = nil
	}

	if err := s.tickets.UpdateStatus(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	s.recordStatusChange(ctx, actorID, ticket.ID, oldStatus, newStatus, reasonPtr)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		ActorID:  actorID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
			Reason:    reasonPtr,
		},
	})
	return ticket, nil
}

func (s *TicketService) recordStatusChange(ctx context.Context, actorID, ticketID string, oldStatus, newStatus domain.TicketStatus, reason *string) {
	if s.history == nil {
		return
	}
	var changedBy *string
	if actorID != "" {
		changedBy = &actorID
	}
	_ = s.history.Create(ctx, &domain.StatusChange{
		TicketID:  ticketID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Reason:    reason,
		ChangedBy: changedBy,
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketKey() string {
	return "REQ-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
