package handlers

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mov-ti/helpdesk-service/internal/api/dto"
	"github.com/mov-ti/helpdesk-service/internal/auth"
	"github.com/mov-ti/helpdesk-service/internal/domain"
	"github.com/mov-ti/helpdesk-service/internal/service"
	apperrors "github.com/mov-ti/helpdesk-service/pkg/util/errorutil"
)

const maxAttachmentBytes = 10 << 20

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
	export  *service.ExportService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, exportService *service.ExportService) *TicketsHandler {
	return &TicketsHandler{service: ticketService, export: exportService}
}

// CreateTicket POST /tickets. Accepts a JSON body, or a multipart form
// with the JSON draft in "payload" and the document in "attachment".
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}

	var req dto.CreateTicketRequest
	var attachment *service.AttachmentInput

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		payload := c.FormValue("payload")
		if payload == "" {
			return apperrors.NewValidationError("payload field required", nil)
		}
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		header, err := c.FormFile("attachment")
		if err == nil && header != nil {
			if header.Size > maxAttachmentBytes {
				return apperrors.NewValidationError("attachment too large", fiber.Map{
					"max_bytes": maxAttachmentBytes,
				})
			}
			file, err := header.Open()
			if err != nil {
				return apperrors.NewValidationError("attachment unreadable", nil)
			}
			data, err := io.ReadAll(file)
			_ = file.Close()
			if err != nil {
				return apperrors.NewValidationError("attachment unreadable", nil)
			}
			attachment = &service.AttachmentInput{
				FileName:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Data:        data,
			}
		}
	} else if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		RequesterName: req.RequesterName,
		Category:      req.Category,
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		Attachment:    attachment,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, service.LineItemInput{
			Code:        item.Code,
			Description: item.Description,
			Quantity:    item.Quantity,
			Tag:         item.Tag,
			Application: item.Application,
		})
	}
	if req.Goods != nil {
		input.Goods = &domain.GoodsDetails{
			Code:        req.Goods.Code,
			Dimensions:  req.Goods.Dimensions,
			Application: req.Goods.Application,
			Allocation:  req.Goods.Allocation,
		}
	}
	if req.Report != nil {
		input.Report = &domain.ReportDetails{
			Company:      req.Report.Company,
			AssetTag:     req.Report.AssetTag,
			ReportNumber: req.Report.ReportNumber,
			Action:       req.Report.Action,
		}
	}

	ticket, err := h.service.CreateTicket(c.Context(), principal.User.ID, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.ToTicketDetail(ticket, nil)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.ListTickets(c.Context(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.ToTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	history, err := h.service.History(c.Context(), ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ToTicketDetail(ticket, history)})
}

// SetStatus POST /tickets/:id/status.
func (h *TicketsHandler) SetStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SetStatus(c.Context(), principal.User.ID, c.Params("id"), req.Status, req.Reason, req.Revision)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ToTicketDetail(ticket, nil)})
}

// ResolveItem POST /tickets/:id/items/:index/resolve.
func (h *TicketsHandler) ResolveItem(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return apperrors.NewValidationError("item index must be a number", nil)
	}
	var req dto.ResolveItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, resolved, err := h.service.ResolveItem(c.Context(), principal.User.ID, c.Params("id"), index, service.ResolutionInput{
		Price:         req.Price,
		PurchaseOrder: req.PurchaseOrder,
		DeliveryDate:  req.DeliveryDate,
		Note:          req.Note,
		Revision:      req.Revision,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":     dto.ToTicketDetail(ticket, nil),
		"resolved": resolved,
	})
}

// ExportTickets GET /tickets/export. The export honors the same filters as
// the listing but never paginates: the whole filtered set goes into the file.
func (h *TicketsHandler) ExportTickets(c *fiber.Ctx) error {
	content, name, err := h.export.ExportTickets(c.Context(), parseTicketFilters(c))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Send(content)
}

func parseTicketFilters(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		category := domain.TicketCategory(raw)
		filter.Category = &category
	}
	if raw := strings.TrimSpace(c.Query("exclude_category")); raw != "" {
		category := domain.TicketCategory(raw)
		filter.ExcludeCategory = &category
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := domain.TicketStatus(raw)
		filter.Status = &status
	}
	if q := strings.TrimSpace(c.Query("search")); q != "" {
		filter.SearchTerm = &q
	}
	return filter
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := parseTicketFilters(c)
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
