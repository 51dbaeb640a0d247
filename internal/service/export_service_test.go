package service

import (
	"bytes"
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mov-ti/helpdesk-service/internal/domain"
)

func TestExportTicketsFansOutItems(t *testing.T) {
	repo := newFakeTicketRepo()
	price := "900.00"
	require.NoError(t, repo.Create(context.Background(), &domain.Ticket{
		ExternalKey:   "REQ-AAA",
		RequesterName: "Maria",
		Category:      domain.CategoryQuote,
		Priority:      domain.TicketPriorityNormal,
		Status:        domain.TicketStatusInProgress,
		Title:         "Quote",
		Items: []domain.LineItem{
			{Position: 0, Description: "forklift", Quantity: 1, Status: domain.LineItemStatusDone,
				Resolution: &domain.ItemResolution{ClosedAt: time.Now(), Price: &price}},
			{Position: 1, Description: "pallet truck", Quantity: 2, Status: domain.LineItemStatusPending},
		},
	}))
	require.NoError(t, repo.Create(context.Background(), &domain.Ticket{
		ExternalKey:   "REQ-BBB",
		RequesterName: "Joao",
		Category:      domain.CategoryGeneral,
		Priority:      domain.TicketPriorityHigh,
		Status:        domain.TicketStatusOpen,
		Title:         "Question",
	}))

	svc := NewExportService(repo)
	content, name, err := svc.ExportTickets(context.Background(), TicketListFilter{})
	require.NoError(t, err)
	assert.Contains(t, name, ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Tickets")
	require.NoError(t, err)
	// header + two item rows + one plain ticket row
	require.Len(t, rows, 4)
	assert.Equal(t, "Key", rows[0][0])

	keys := map[string]int{}
	for _, row := range rows[1:] {
		keys[row[0]]++
	}
	assert.Equal(t, 2, keys["REQ-AAA"])
	assert.Equal(t, 1, keys["REQ-BBB"])
}

func TestExportTicketsNotPaginated(t *testing.T) {
	repo := newFakeTicketRepo()
	for i := 0; i < 60; i++ {
		require.NoError(t, repo.Create(context.Background(), &domain.Ticket{
			ExternalKey:   "REQ-" + strconv.Itoa(i),
			RequesterName: "Maria",
			Category:      domain.CategoryGeneral,
			Priority:      domain.TicketPriorityNormal,
			Status:        domain.TicketStatusOpen,
			Title:         "Question",
		}))
	}

	svc := NewExportService(repo)
	content, _, err := svc.ExportTickets(context.Background(), TicketListFilter{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Tickets")
	require.NoError(t, err)
	assert.Len(t, rows, 61)
}

func TestExportTicketsResolutionColumn(t *testing.T) {
	repo := newFakeTicketRepo()
	po := "PO-42"
	delivery := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(context.Background(), &domain.Ticket{
		ExternalKey:   "REQ-CCC",
		RequesterName: "Ana",
		Category:      domain.CategoryPurchase,
		Priority:      domain.TicketPriorityNormal,
		Status:        domain.TicketStatusResolved,
		Title:         "Purchase",
		Items: []domain.LineItem{
			{Position: 0, Description: "bearings", Quantity: 10, Status: domain.LineItemStatusDone,
				Resolution: &domain.ItemResolution{ClosedAt: time.Now(), PurchaseOrder: &po, DeliveryDate: &delivery}},
		},
	}))

	svc := NewExportService(repo)
	content, _, err := svc.ExportTickets(context.Background(), TicketListFilter{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Tickets")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "po: PO-42, delivery: 2025-03-10", rows[1][9])
}
