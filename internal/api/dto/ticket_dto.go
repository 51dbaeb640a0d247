package dto

import (
	"time"

	"github.com/mov-ti/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload. Sent either as a JSON body or as the
// "payload" field of a multipart form when an attachment rides along.
type CreateTicketRequest struct {
	RequesterName string                `json:"requester_name"`
	Category      domain.TicketCategory `json:"category"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Priority      domain.TicketPriority `json:"priority"`
	Items         []LineItemRequest     `json:"items"`
	Goods         *GoodsDetailsRequest  `json:"goods,omitempty"`
	Report        *ReportDetailsRequest `json:"report,omitempty"`
}

// LineItemRequest describes one sub-task at creation time.
type LineItemRequest struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Tag         string `json:"tag"`
	Application string `json:"application"`
}

// GoodsDetailsRequest carries goods registration fields.
type GoodsDetailsRequest struct {
	Code        string                  `json:"code"`
	Dimensions  string                  `json:"dimensions"`
	Application string                  `json:"application"`
	Allocation  domain.AllocationTarget `json:"allocation"`
}

// ReportDetailsRequest carries report control fields.
type ReportDetailsRequest struct {
	Company      string              `json:"company"`
	AssetTag     string              `json:"asset_tag"`
	ReportNumber string              `json:"report_number"`
	Action       domain.ReportAction `json:"action"`
}

// SetStatusRequest payload for manual transitions.
type SetStatusRequest struct {
	Status   domain.TicketStatus `json:"status"`
	Reason   string              `json:"reason"`
	Revision int64               `json:"revision"`
}

// ResolveItemRequest payload. Exactly the fields the ticket's category
// calls for are required; the rest stay empty.
type ResolveItemRequest struct {
	Price         string     `json:"price"`
	PurchaseOrder string     `json:"purchase_order"`
	DeliveryDate  *time.Time `json:"delivery_date"`
	Note          string     `json:"note"`
	Revision      int64      `json:"revision"`
}

// TicketSummary response.
type TicketSummary struct {
	ID            string                `json:"id"`
	ExternalKey   string                `json:"external_key"`
	RequesterName string                `json:"requester_name"`
	Category      domain.TicketCategory `json:"category"`
	CategoryLabel string                `json:"category_label"`
	Title         string                `json:"title"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	PendingItems  int                   `json:"pending_items"`
	Revision      int64                 `json:"revision"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	ID             string                 `json:"id"`
	ExternalKey    string                 `json:"external_key"`
	RequesterName  string                 `json:"requester_name"`
	Category       domain.TicketCategory  `json:"category"`
	CategoryLabel  string                 `json:"category_label"`
	Title          string                 `json:"title"`
	Description    string                 `json:"description"`
	Status         domain.TicketStatus    `json:"status"`
	Priority       domain.TicketPriority  `json:"priority"`
	ReturnReason   *string                `json:"return_reason"`
	AttachmentName *string                `json:"attachment_name"`
	AttachmentURL  *string                `json:"attachment_url"`
	Goods          *GoodsDetailsRequest   `json:"goods,omitempty"`
	Report         *ReportDetailsRequest  `json:"report,omitempty"`
	Items          []LineItemResponse     `json:"items"`
	History        []StatusChangeResponse `json:"history,omitempty"`
	Revision       int64                  `json:"revision"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// LineItemResponse represents one sub-task.
type LineItemResponse struct {
	Position    int                   `json:"position"`
	Code        string                `json:"code"`
	Description string                `json:"description"`
	Quantity    int                   `json:"quantity"`
	Tag         string                `json:"tag"`
	Application string                `json:"application"`
	Status      domain.LineItemStatus `json:"status"`
	Resolution  *ResolutionResponse   `json:"resolution,omitempty"`
}

// ResolutionResponse describes how an item was closed.
type ResolutionResponse struct {
	ClosedAt      time.Time  `json:"closed_at"`
	Price         *string    `json:"price,omitempty"`
	PurchaseOrder *string    `json:"purchase_order,omitempty"`
	DeliveryDate  *time.Time `json:"delivery_date,omitempty"`
	Note          *string    `json:"note,omitempty"`
}

// StatusChangeResponse is one audit trail entry.
type StatusChangeResponse struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reason    *string             `json:"reason,omitempty"`
	ChangedBy *string             `json:"changed_by,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// ToTicketSummary maps a domain ticket onto the list row.
func ToTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:            t.ID,
		ExternalKey:   t.ExternalKey,
		RequesterName: t.RequesterName,
		Category:      t.Category,
		CategoryLabel: t.Category.Label(),
		Title:         t.Title,
		Status:        t.Status,
		Priority:      t.Priority,
		PendingItems:  t.PendingItems(),
		Revision:      t.Revision,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// ToTicketDetail maps a domain ticket onto the full response.
func ToTicketDetail(t *domain.Ticket, history []domain.StatusChange) TicketDetailResponse {
	resp := TicketDetailResponse{
		ID:             t.ID,
		ExternalKey:    t.ExternalKey,
		RequesterName:  t.RequesterName,
		Category:       t.Category,
		CategoryLabel:  t.Category.Label(),
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status,
		Priority:       t.Priority,
		ReturnReason:   t.ReturnReason,
		AttachmentName: t.AttachmentName,
		AttachmentURL:  t.AttachmentURL,
		Items:          make([]LineItemResponse, 0, len(t.Items)),
		Revision:       t.Revision,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
	if t.Details != nil {
		if t.Details.Goods != nil {
			resp.Goods = &GoodsDetailsRequest{
				Code:        t.Details.Goods.Code,
				Dimensions:  t.Details.Goods.Dimensions,
				Application: t.Details.Goods.Application,
				Allocation:  t.Details.Goods.Allocation,
			}
		}
		if t.Details.Report != nil {
			resp.Report = &ReportDetailsRequest{
				Company:      t.Details.Report.Company,
				AssetTag:     t.Details.Report.AssetTag,
				ReportNumber: t.Details.Report.ReportNumber,
				Action:       t.Details.Report.Action,
			}
		}
	}
	for _, item := range t.Items {
		out := LineItemResponse{
			Position:    item.Position,
			Code:        item.Code,
			Description: item.Description,
			Quantity:    item.Quantity,
			Tag:         item.Tag,
			Application: item.Application,
			Status:      item.Status,
		}
		if item.Resolution != nil {
			out.Resolution = &ResolutionResponse{
				ClosedAt:      item.Resolution.ClosedAt,
				Price:         item.Resolution.Price,
				PurchaseOrder: item.Resolution.PurchaseOrder,
				DeliveryDate:  item.Resolution.DeliveryDate,
				Note:          item.Resolution.Note,
			}
		}
		resp.Items = append(resp.Items, out)
	}
	for _, change := range history {
		resp.History = append(resp.History, StatusChangeResponse{
			OldStatus: change.OldStatus,
			NewStatus: change.NewStatus,
			Reason:    change.Reason,
			ChangedBy: change.ChangedBy,
			CreatedAt: change.CreatedAt,
		})
	}
	return resp
}
