package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mov-ti/helpdesk-service/internal/domain"
	"github.com/mov-ti/helpdesk-service/internal/repository"
	apperrors "github.com/mov-ti/helpdesk-service/pkg/util/errorutil"
)

// ExportService renders ticket listings as xlsx workbooks. Item-level
// tickets fan out to one row per line item so resolution data stays
// attached to the item it belongs to.
type ExportService struct {
	tickets repository.TicketRepository
}

func NewExportService(tickets repository.TicketRepository) *ExportService {
	return &ExportService{tickets: tickets}
}

var exportHeader = []string{
	"Key", "Requester", "Category", "Priority", "Status", "Title",
	"Item", "Item Status", "Quantity", "Resolution", "Return Reason",
	"Created", "Updated",
}

// ExportTickets writes matching tickets into a spreadsheet and returns the
// file contents along with a timestamped file name. A zero Limit exports
// every match; the caller decides whether to page.
func (s *ExportService) ExportTickets(ctx context.Context, filter TicketListFilter) ([]byte, string, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Category:        filter.Category,
		ExcludeCategory: filter.ExcludeCategory,
		Status:          filter.Status,
		SearchTerm:      filter.SearchTerm,
		IncludeItems:    true,
		Limit:           filter.Limit,
		Offset:          filter.Offset,
	})
	if err != nil {
		return nil, "", apperrors.MapError(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Tickets"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, "", apperrors.NewInternalError(err)
		}
	}

	row := 2
	for i := range tickets {
		ticket := &tickets[i]
		if len(ticket.Items) == 0 {
			if err := writeExportRow(f, sheet, row, ticket, nil); err != nil {
				return nil, "", apperrors.NewInternalError(err)
			}
			row++
			continue
		}
		for j := range ticket.Items {
			if err := writeExportRow(f, sheet, row, ticket, &ticket.Items[j]); err != nil {
				return nil, "", apperrors.NewInternalError(err)
			}
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	name := fmt.Sprintf("tickets-%s.xlsx", time.Now().Format("20060102-150405"))
	return buf.Bytes(), name, nil
}

func writeExportRow(f *excelize.File, sheet string, row int, ticket *domain.Ticket, item *domain.LineItem) error {
	values := []any{
		ticket.ExternalKey,
		ticket.RequesterName,
		ticket.Category.Label(),
		string(ticket.Priority),
		string(ticket.Status),
		ticket.Title,
		"", "", "", "",
		deref(ticket.ReturnReason),
		ticket.CreatedAt.Format(time.RFC3339),
		ticket.UpdatedAt.Format(time.RFC3339),
	}
	if item != nil {
		values[6] = item.Description
		values[7] = string(item.Status)
		values[8] = strconv.Itoa(item.Quantity)
		values[9] = formatResolution(item.Resolution)
	}
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return err
		}
	}
	return nil
}

func formatResolution(res *domain.ItemResolution) string {
	if res == nil {
		return ""
	}
	switch {
	case res.Price != nil:
		return "price: " + *res.Price
	case res.PurchaseOrder != nil:
		out := "po: " + *res.PurchaseOrder
		if res.DeliveryDate != nil {
			out += ", delivery: " + res.DeliveryDate.Format("2006-01-02")
		}
		return out
	case res.Note != nil:
		return *res.Note
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
