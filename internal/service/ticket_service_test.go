package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mov-ti/helpdesk-service/internal/domain"
	"github.com/mov-ti/helpdesk-service/internal/events"
	"github.com/mov-ti/helpdesk-service/internal/repository"
	apperrors "github.com/mov-ti/helpdesk-service/pkg/util/errorutil"
)

// --- Fakes ---

type fakeTicketRepo struct {
	tickets   map[string]*domain.Ticket
	createErr error
	nextID    int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (f *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	ticket.ID = "t-" + strconv.Itoa(f.nextID)
	ticket.Revision = 1
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *ticket
	copied.Items = append([]domain.LineItem(nil), ticket.Items...)
	return &copied, nil
}

// ListWithFilter mirrors the Postgres contract: line items come back only
// when IncludeItems is set, and a Limit of zero or less returns everything.
func (f *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range f.tickets {
		if filter.Category != nil && t.Category != *filter.Category {
			continue
		}
		if filter.ExcludeCategory != nil && t.Category == *filter.ExcludeCategory {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		copied := *t
		if filter.IncludeItems {
			copied.Items = append([]domain.LineItem(nil), t.Items...)
		} else {
			copied.Items = nil
		}
		out = append(out, copied)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeTicketRepo) UpdateStatus(ctx context.Context, ticket *domain.Ticket) error {
	stored, ok := f.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Revision != ticket.Revision {
		return repository.ErrConflict
	}
	stored.Status = ticket.Status
	stored.ReturnReason = ticket.ReturnReason
	stored.Revision++
	stored.UpdatedAt = time.Now()
	ticket.Revision = stored.Revision
	return nil
}

func (f *fakeTicketRepo) ResolveItem(ctx context.Context, ticket *domain.Ticket, position int) error {
	stored, ok := f.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Revision != ticket.Revision {
		return repository.ErrConflict
	}
	if stored.Items[position].Status != domain.LineItemStatusPending {
		return repository.ErrConflict
	}
	stored.Items[position] = ticket.Items[position]
	stored.Status = ticket.Status
	stored.ReturnReason = ticket.ReturnReason
	stored.Revision++
	ticket.Revision = stored.Revision
	return nil
}

type fakeHistoryRepo struct {
	changes []domain.StatusChange
}

func (f *fakeHistoryRepo) Create(ctx context.Context, change *domain.StatusChange) error {
	f.changes = append(f.changes, *change)
	return nil
}

func (f *fakeHistoryRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusChange, error) {
	var out []domain.StatusChange
	for _, c := range f.changes {
		if c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeStore struct {
	objects map[string][]byte
	putErr  error
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = body
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) PublicURL(key string) string {
	return "https://files.test/" + key
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func newTestService() (*TicketService, *fakeTicketRepo, *fakeHistoryRepo, *fakeStore, *recordingDispatcher) {
	repo := newFakeTicketRepo()
	history := &fakeHistoryRepo{}
	store := newFakeStore()
	dispatcher := &recordingDispatcher{}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  repo,
		HistoryRepo: history,
		Store:       store,
		Dispatcher:  dispatcher,
	})
	return svc, repo, history, store, dispatcher
}

// --- Creation ---

func TestCreateTicketDefaults(t *testing.T) {
	svc, _, _, _, dispatcher := newTestService()

	ticket, err := svc.CreateTicket(context.Background(), "u1", TicketCreateInput{
		RequesterName: "Maria",
		Category:      domain.CategoryQuote,
		Description:   "two forklifts",
		Items: []LineItemInput{
			{Description: "forklift 2t", Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityNormal, ticket.Priority)
	assert.Equal(t, domain.CategoryQuote.Label(), ticket.Title)
	assert.NotEmpty(t, ticket.ExternalKey)
	assert.Len(t, ticket.Items, 1)
	assert.Equal(t, domain.LineItemStatusPending, ticket.Items[0].Status)

	require.Len(t, dispatcher.published, 1)
	assert.Equal(t, events.EventTicketCreated, dispatcher.published[0].Type)
}

func TestCreateTicketValidation(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.CreateTicket(context.Background(), "u1", TicketCreateInput{
		Category: domain.CategoryGeneral,
	})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
	assert.Contains(t, de.Details, "requester_name")
	assert.Contains(t, de.Details, "description")
}

func TestCreateTicketRegistrationNeedsAttachment(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.CreateTicket(context.Background(), "u1", TicketCreateInput{
		RequesterName: "Joao",
		Category:      domain.CategorySupplierRegistration,
		Description:   "new parts supplier",
	})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Details, "attachment")
}

func TestCreateTicketReportControlNeedsCompanyAndAction(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.CreateTicket(context.Background(), "u1", TicketCreateInput{
		RequesterName: "Ana",
		Category:      domain.CategoryReportControl,
		Description:   "preventive check",
		Report:        &domain.ReportDetails{},
	})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Details, "report.company")
	assert.Contains(t, de.Details, "report.action")
}

func TestCreateTicketDetailsMustMatchCategory(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.CreateTicket(context.Background(), "u1", TicketCreateInput{
		RequesterName: "Maria",
		Category:      domain.CategoryPurchase,
		Description:   "spare parts",
		Goods:         &domain.GoodsDetails{Code: "X-1"},
	})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Details, "details")
}

func TestCreateTicketUploadCompensation(t *testing.T) {
	svc, repo, _, store, _ := newTestService()
	repo.createErr = errors.New("db down")

	_, err := svc.CreateTicket(context.Background(), "u1", TicketCreateInput{
		RequesterName: "Joao",
		Category:      domain.CategorySupplierRegistration,
		Description:   "new parts supplier",
		Attachment: &AttachmentInput{
			FileName:    "contract.pdf",
			ContentType: "application/pdf",
			Data:        []byte("pdf"),
		},
	})
	require.Error(t, err)
	assert.Len(t, store.deleted, 1)
	assert.Empty(t, store.objects)
}

func TestListTicketsOmitsItems(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ticket := makeItemTicket(t, svc, domain.CategoryGeneral, 2)

	listed, err := svc.ListTickets(context.Background(), TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Empty(t, listed[0].Items)

	full, err := svc.GetTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, full.Items, 2)
}

// --- Item resolution ---

func makeItemTicket(t *testing.T, svc *TicketService, category domain.TicketCategory, items int) *domain.Ticket {
	t.Helper()
	input := TicketCreateInput{
		RequesterName: "Maria",
		Category:      category,
		Description:   "desc",
	}
	for i := 0; i < items; i++ {
		input.Items = append(input.Items, LineItemInput{Description: "item", Quantity: 1})
	}
	ticket, err := svc.CreateTicket(context.Background(), "u1", input)
	require.NoError(t, err)
	return ticket
}

func TestResolveItemQuoteRequiresPrice(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ticket := makeItemTicket(t, svc, domain.CategoryQuote, 1)

	_, _, err := svc.ResolveItem(context.Background(), "agent", ticket.ID, 0, ResolutionInput{})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Details, "price")

	updated, resolved, err := svc.ResolveItem(context.Background(), "agent", ticket.ID, 0, ResolutionInput{Price: "1200.00"})
	require.NoError(t, err)
	assert.True(t, resolved)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	require.NotNil(t, updated.Items[0].Resolution)
	assert.Equal(t, "1200.00", *updated.Items[0].Resolution.Price)
}

func TestResolveItemPurchaseRequiresOrderAndDate(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ticket := makeItemTicket(t, svc, domain.CategoryPurchase, 1)

	_, _, err := svc.ResolveItem(context.Background(), "agent", ticket.ID, 0, ResolutionInput{PurchaseOrder: "PO-1"})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Details, "delivery_date")
	assert.NotContains(t, de.Details, "purchase_order")

	date := time.Now().AddDate(0, 0, 14)
	updated, resolved, err := svc.ResolveItem(context.Background(), "agent", ticket.ID, 0, ResolutionInput{
		PurchaseOrder: "PO-1",
		DeliveryDate:  &date,
	})
	require.NoError(t, err)
	assert.True(t, resolved)
	assert.Equal(t, "PO-1", *updated.Items[0].Resolution.PurchaseOrder)
}

func TestResolveItemPartialKeepsInProgress(t *testing.T) {
	svc, _, _, _, dispatcher := newTestService()
	ticket := makeItemTicket(t, svc, domain.CategoryGeneral, 3)

	updated, resolved, err := svc.ResolveItem(context.Background(), "agent", ticket.ID, 1, ResolutionInput{Note: "done"})
	require.NoError(t, err)
	assert.False(t, resolved)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, 2, updated.PendingItems())

	last := dispatcher.published[len(dispatcher.published)-1]
	assert.Equal(t, events.EventTicketItemResolved, last.Type)
	payload, ok := last.Payload.(events.TicketItemResolvedPayload)
	require.True(t, ok)
	assert.Equal(t, 1, payload.Position)
	assert.False(t, payload.TicketResolved)
}

func TestResolveItemAlreadyDone(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ticket := makeItemTicket(t, svc, domain.CategoryGeneral, 2)

	_, _, err := svc.ResolveItem(context.Background(), "agent", ticket.ID, 0, ResolutionInput{Note: "done"})
	require.NoError(t, err)

	_, _, err = svc.ResolveItem(context.Background(), "agent", ticket.ID, 0, ResolutionInput{Note: "again"})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
}

func TestResolveItemOnResolvedTicket(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ticket := makeItemTicket(t, svc, domain.CategoryGeneral, 1)

	_, resolved, err := svc.ResolveItem(context.Background(), "agent", ticket.ID, 0, ResolutionInput{Note: "done"})
	require.NoError(t, err)
	require.True(t, resolved)

	_, _, err = svc.ResolveItem(context.Background(), "agent", ticket.ID, 0, ResolutionInput{Note: "again"})
	require.Error(t, err)
}

func TestResolveItemStaleRevision(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ticket := makeItemTicket(t, svc, domain.CategoryGeneral, 2)

	_, _, err := svc.ResolveItem(context.Background(), "agent", ticket.ID, 0, ResolutionInput{Note: "done"})
	require.NoError(t, err)

	// second agent still holds revision 1
	_, _, err = svc.ResolveItem(context.Background(), "agent2", ticket.ID, 1, ResolutionInput{
		Note:     "done too",
		Revision: ticket.Revision,
	})
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "CONFLICT", de.Code)
}

func TestResolveItemOutOfRange(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ticket := makeItemTicket(t, svc, domain.CategoryGeneral, 1)

	_, _, err := svc.ResolveItem(context.Background(), "agent", ticket.ID, 5, ResolutionInput{Note: "done"})
	require.Error(t, err)
	_, _, err = svc.ResolveItem(context.Background(), "agent", ticket.ID, -1, ResolutionInput{Note: "done"})
	require.Error(t, err)
}

// --- Manual transitions ---

func makePlainTicket(t *testing.T, svc *TicketService) *domain.Ticket {
	t.Helper()
	ticket, err := svc.CreateTicket(context.Background(), "u1", TicketCreateInput{
		RequesterName: "Maria",
		Category:      domain.CategoryGeneral,
		Description:   "question",
	})
	require.NoError(t, err)
	return ticket
}

func TestSetStatusReturnedRequiresReason(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ticket := makePlainTicket(t, svc)

	_, err := svc.SetStatus(context.Background(), "agent", ticket.ID, domain.TicketStatusReturned, "", 0)
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Contains(t, de.Details, "return_reason")

	updated, err := svc.SetStatus(context.Background(), "agent", ticket.ID, domain.TicketStatusReturned, "missing budget code", 0)
	require.NoError(t, err)
	require.NotNil(t, updated.ReturnReason)
	assert.Equal(t, "missing budget code", *updated.ReturnReason)
}

func TestSetStatusResolvedRejectedWithItems(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ticket := makeItemTicket(t, svc, domain.CategoryGeneral, 2)

	_, err := svc.SetStatus(context.Background(), "agent", ticket.ID, domain.TicketStatusResolved, "", 0)
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
}

func TestSetStatusResolvedAllowedWithoutItems(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ticket := makePlainTicket(t, svc)

	updated, err := svc.SetStatus(context.Background(), "agent", ticket.ID, domain.TicketStatusResolved, "", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, updated.Status)
}

func TestReopenClearsReturnReason(t *testing.T) {
	svc, _, history, _, _ := newTestService()
	ticket := makePlainTicket(t, svc)

	returned, err := svc.SetStatus(context.Background(), "agent", ticket.ID, domain.TicketStatusReturned, "needs detail", 0)
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnReason)

	reopened, err := svc.SetStatus(context.Background(), "requester", ticket.ID, domain.TicketStatusOpen, "", 0)
	require.NoError(t, err)
	assert.Nil(t, reopened.ReturnReason)

	changes, err := history.ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	require.NotNil(t, changes[0].Reason)
	assert.Equal(t, "needs detail", *changes[0].Reason)
}

func TestSetStatusInvalidTransition(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ticket := makePlainTicket(t, svc)

	_, err := svc.SetStatus(context.Background(), "agent", ticket.ID, domain.TicketStatusResolved, "", 0)
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), "agent", ticket.ID, domain.TicketStatusReturned, "nope", 0)
	require.Error(t, err)
}

func TestSetStatusUnknownTicket(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.SetStatus(context.Background(), "agent", "missing", domain.TicketStatusInProgress, "", 0)
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "NOT_FOUND", de.Code)
}

func TestSetStatusStaleRevision(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	ticket := makePlainTicket(t, svc)

	_, err := svc.SetStatus(context.Background(), "agent", ticket.ID, domain.TicketStatusInProgress, "", 0)
	require.NoError(t, err)

	_, err = svc.SetStatus(context.Background(), "agent2", ticket.ID, domain.TicketStatusReturned, "stale", ticket.Revision)
	require.Error(t, err)
	var de *apperrors.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "CONFLICT", de.Code)
}
