package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mov-ti/helpdesk-service/internal/domain"
)

// TicketFilter captures listing parameters. Category supports equality and
// inequality so the dashboard can exclude report-control records while the
// report screen selects only them. IncludeItems additionally loads each
// ticket's line items; a Limit of zero or less returns every match, which
// the export path relies on.
type TicketFilter struct {
	Category        *domain.TicketCategory
	ExcludeCategory *domain.TicketCategory
	Status          *domain.TicketStatus
	SearchTerm      *string
	IncludeItems    bool
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket persistence. UpdateStatus and
// ResolveItem are conditional writes on Ticket.Revision; both return
// ErrConflict when the row moved on since the caller loaded it.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, ticket *domain.Ticket) error
	ResolveItem(ctx context.Context, ticket *domain.Ticket, position int) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertTicket = `
        INSERT INTO tickets (external_key, requester_name, title, description, category, priority,
            status, return_reason, attachment_name, attachment_url, details, revision)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,1)
        RETURNING id, revision, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertTicket,
		ticket.ExternalKey,
		ticket.RequesterName,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.ReturnReason,
		ticket.AttachmentName,
		ticket.AttachmentURL,
		ticket.Details,
	).Scan(&ticket.ID, &ticket.Revision, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	const insertItem = `
        INSERT INTO ticket_line_items (ticket_id, position, code, description, quantity, tag, application, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	for i := range ticket.Items {
		item := &ticket.Items[i]
		item.TicketID = ticket.ID
		item.Position = i
		if err := tx.QueryRow(ctx, insertItem,
			ticket.ID,
			item.Position,
			item.Code,
			item.Description,
			item.Quantity,
			item.Tag,
			item.Application,
			item.Status,
		).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, external_key, requester_name, title, description, category, priority,
               status, return_reason, attachment_name, attachment_url, details, revision,
               created_at, updated_at
        FROM tickets WHERE id=$1`

	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.RequesterName,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.ReturnReason,
		&ticket.AttachmentName,
		&ticket.AttachmentURL,
		&ticket.Details,
		&ticket.Revision,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	items, err := r.listItems(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	ticket.Items = items
	return &ticket, nil
}

const lineItemColumns = `id, ticket_id, position, code, description, quantity, tag, application, status,
               resolved_at, price, purchase_order, delivery_date, note, created_at, updated_at`

func scanLineItem(rows pgx.Rows) (domain.LineItem, error) {
	var (
		item       domain.LineItem
		resolvedAt *time.Time
		price      *string
		po         *string
		delivery   *time.Time
		note       *string
	)
	if err := rows.Scan(
		&item.ID,
		&item.TicketID,
		&item.Position,
		&item.Code,
		&item.Description,
		&item.Quantity,
		&item.Tag,
		&item.Application,
		&item.Status,
		&resolvedAt,
		&price,
		&po,
		&delivery,
		&note,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return domain.LineItem{}, err
	}
	if resolvedAt != nil {
		item.Resolution = &domain.ItemResolution{
			ClosedAt:      *resolvedAt,
			Price:         price,
			PurchaseOrder: po,
			DeliveryDate:  delivery,
			Note:          note,
		}
	}
	return item, nil
}

func (r *ticketRepository) listItems(ctx context.Context, ticketID string) ([]domain.LineItem, error) {
	const query = `
        SELECT ` + lineItemColumns + `
        FROM ticket_line_items WHERE ticket_id=$1 ORDER BY position`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// attachItems loads line items for a page of tickets in one query.
func (r *ticketRepository) attachItems(ctx context.Context, tickets []domain.Ticket) error {
	ids := make([]string, len(tickets))
	index := make(map[string]int, len(tickets))
	for i := range tickets {
		ids[i] = tickets[i].ID
		index[tickets[i].ID] = i
	}

	const query = `
        SELECT ` + lineItemColumns + `
        FROM ticket_line_items WHERE ticket_id = ANY($1) ORDER BY ticket_id, position`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return err
		}
		if i, ok := index[item.TicketID]; ok {
			tickets[i].Items = append(tickets[i].Items, item)
		}
	}
	return rows.Err()
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT id, external_key, requester_name, title, description, category, priority,
                    status, return_reason, attachment_name, attachment_url, details, revision,
                    created_at, updated_at
             FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.ExcludeCategory != nil {
		args = append(args, *filter.ExcludeCategory)
		clauses = append(clauses, fmt.Sprintf("category<>$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			`(LOWER(title) LIKE %[1]s OR LOWER(description) LIKE %[1]s OR LOWER(requester_name) LIKE %[1]s
              OR LOWER(details->'report'->>'company') LIKE %[1]s OR LOWER(details->'report'->>'asset_tag') LIKE %[1]s)`, p))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC`,
		base, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.ExternalKey,
			&ticket.RequesterName,
			&ticket.Title,
			&ticket.Description,
			&ticket.Category,
			&ticket.Priority,
			&ticket.Status,
			&ticket.ReturnReason,
			&ticket.AttachmentName,
			&ticket.AttachmentURL,
			&ticket.Details,
			&ticket.Revision,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if filter.IncludeItems && len(result) > 0 {
		if err := r.attachItems(ctx, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UpdateStatus persists status and return reason, conditional on the
// revision the ticket was loaded with.
func (r *ticketRepository) UpdateStatus(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, return_reason=$2, revision=revision+1, updated_at=NOW()
        WHERE id=$3 AND revision=$4
        RETURNING revision, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Status,
		ticket.ReturnReason,
		ticket.ID,
		ticket.Revision,
	).Scan(&ticket.Revision, &ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.casFailure(ctx, ticket.ID)
	}
	return err
}

// ResolveItem writes one item's resolution and the rolled-up ticket status
// atomically, conditional on the ticket revision.
func (r *ticketRepository) ResolveItem(ctx context.Context, ticket *domain.Ticket, position int) error {
	if position < 0 || position >= len(ticket.Items) {
		return fmt.Errorf("position %d out of range", position)
	}
	item := &ticket.Items[position]
	if item.Resolution == nil {
		return fmt.Errorf("item %d has no resolution to persist", position)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const updateTicket = `
        UPDATE tickets SET status=$1, return_reason=$2, revision=revision+1, updated_at=NOW()
        WHERE id=$3 AND revision=$4
        RETURNING revision, updated_at`
	err = tx.QueryRow(ctx, updateTicket,
		ticket.Status,
		ticket.ReturnReason,
		ticket.ID,
		ticket.Revision,
	).Scan(&ticket.Revision, &ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.casFailure(ctx, ticket.ID)
	}
	if err != nil {
		return err
	}

	const updateItem = `
        UPDATE ticket_line_items
        SET status=$1, resolved_at=$2, price=$3, purchase_order=$4, delivery_date=$5, note=$6, updated_at=NOW()
        WHERE ticket_id=$7 AND position=$8 AND status=$9`
	cmd, err := tx.Exec(ctx, updateItem,
		domain.LineItemStatusDone,
		item.Resolution.ClosedAt,
		item.Resolution.Price,
		item.Resolution.PurchaseOrder,
		item.Resolution.DeliveryDate,
		item.Resolution.Note,
		ticket.ID,
		position,
		domain.LineItemStatusPending,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// revision matched but the item row is not pending anymore;
		// treat as a concurrent mutation
		return ErrConflict
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) casFailure(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}
