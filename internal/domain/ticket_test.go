package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to TicketStatus
		want     bool
	}{
		{TicketStatusOpen, TicketStatusInProgress, true},
		{TicketStatusOpen, TicketStatusReturned, true},
		{TicketStatusOpen, TicketStatusResolved, true},
		{TicketStatusInProgress, TicketStatusOpen, true},
		{TicketStatusInProgress, TicketStatusResolved, true},
		{TicketStatusReturned, TicketStatusInProgress, true},
		{TicketStatusResolved, TicketStatusOpen, true},
		{TicketStatusResolved, TicketStatusInProgress, false},
		{TicketStatusResolved, TicketStatusReturned, false},
		{TicketStatusOpen, TicketStatusOpen, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestRollupStatus(t *testing.T) {
	pending := LineItem{Status: LineItemStatusPending}
	done := LineItem{Status: LineItemStatusDone}

	assert.Equal(t, TicketStatusResolved, RollupStatus([]LineItem{done, done}))
	assert.Equal(t, TicketStatusInProgress, RollupStatus([]LineItem{done, pending}))
	assert.Equal(t, TicketStatusInProgress, RollupStatus([]LineItem{pending, done}))
	assert.Equal(t, TicketStatusInProgress, RollupStatus([]LineItem{pending, pending}))
}

// the rollup must not care which item closed first
func TestRollupStatusOrderIndependent(t *testing.T) {
	a := []LineItem{{Status: LineItemStatusDone}, {Status: LineItemStatusPending}, {Status: LineItemStatusDone}}
	b := []LineItem{{Status: LineItemStatusPending}, {Status: LineItemStatusDone}, {Status: LineItemStatusDone}}
	assert.Equal(t, RollupStatus(a), RollupStatus(b))
}

func TestPendingItems(t *testing.T) {
	ticket := Ticket{Items: []LineItem{
		{Status: LineItemStatusDone},
		{Status: LineItemStatusPending},
		{Status: LineItemStatusPending},
	}}
	assert.Equal(t, 2, ticket.PendingItems())
	assert.True(t, ticket.HasLineItems())

	empty := Ticket{}
	assert.Equal(t, 0, empty.PendingItems())
	assert.False(t, empty.HasLineItems())
}

func TestCategoryResolutionKind(t *testing.T) {
	assert.Equal(t, ResolutionKindPrice, CategoryQuote.ResolutionKind())
	assert.Equal(t, ResolutionKindPurchaseOrder, CategoryPurchase.ResolutionKind())
	assert.Equal(t, ResolutionKindNote, CategoryGeneral.ResolutionKind())
	assert.Equal(t, ResolutionKindNote, CategoryReportControl.ResolutionKind())
}

func TestCategoryRequiresAttachment(t *testing.T) {
	assert.True(t, CategoryClientRegistration.RequiresAttachment())
	assert.True(t, CategorySupplierRegistration.RequiresAttachment())
	assert.False(t, CategoryPurchase.RequiresAttachment())
	assert.False(t, CategoryGeneral.RequiresAttachment())
}

func TestDetailsMatchesCategory(t *testing.T) {
	goods := &TicketDetails{Goods: &GoodsDetails{Code: "X"}}
	report := &TicketDetails{Report: &ReportDetails{Company: "Acme", Action: ReportActionInProgress}}

	assert.True(t, goods.MatchesCategory(CategoryGoodsRegistration))
	assert.False(t, goods.MatchesCategory(CategoryPurchase))
	assert.True(t, report.MatchesCategory(CategoryReportControl))
	assert.False(t, report.MatchesCategory(CategoryGoodsRegistration))

	var none *TicketDetails
	assert.True(t, none.MatchesCategory(CategoryGeneral))
}
