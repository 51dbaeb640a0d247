package domain

// TicketCategory is the closed set of request kinds. The category selects
// which detail fields apply at creation and which resolution payload a line
// item requires, and is immutable once the ticket exists.
type TicketCategory string

const (
	CategoryPurchase             TicketCategory = "PURCHASE"
	CategoryQuote                TicketCategory = "QUOTE"
	CategoryNewLease             TicketCategory = "NEW_LEASE"
	CategoryGoodsRegistration    TicketCategory = "GOODS_REGISTRATION"
	CategoryClientRegistration   TicketCategory = "CLIENT_REGISTRATION"
	CategorySupplierRegistration TicketCategory = "SUPPLIER_REGISTRATION"
	CategoryDocumentIssuance     TicketCategory = "DOCUMENT_ISSUANCE"
	CategoryReportControl        TicketCategory = "REPORT_CONTROL"
	CategoryGeneral              TicketCategory = "GENERAL"
)

var categoryLabels = map[TicketCategory]string{
	CategoryPurchase:             "Purchase",
	CategoryQuote:                "Quote",
	CategoryNewLease:             "New Lease",
	CategoryGoodsRegistration:    "Goods Registration",
	CategoryClientRegistration:   "Client Registration",
	CategorySupplierRegistration: "Supplier Registration",
	CategoryDocumentIssuance:     "Document Issuance",
	CategoryReportControl:        "Report Control",
	CategoryGeneral:              "General",
}

// Valid reports whether the category belongs to the closed set.
func (c TicketCategory) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the human-readable category name, used as the ticket title
// fallback when the form submits none.
func (c TicketCategory) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// RequiresAttachment reports whether creation must carry a registration
// document (the CNPJ card for client and supplier registration).
func (c TicketCategory) RequiresAttachment() bool {
	return c == CategoryClientRegistration || c == CategorySupplierRegistration
}

// ResolutionKind selects the payload shape a line-item resolution must carry
// for this category.
type ResolutionKind int

const (
	// ResolutionKindNote requires a free-text completion note.
	ResolutionKindNote ResolutionKind = iota
	// ResolutionKindPrice requires the negotiated price/offer.
	ResolutionKindPrice
	// ResolutionKindPurchaseOrder requires a purchase-order number and an
	// expected delivery date.
	ResolutionKindPurchaseOrder
)

// ResolutionKind returns the resolution payload shape for the category.
func (c TicketCategory) ResolutionKind() ResolutionKind {
	switch c {
	case CategoryQuote:
		return ResolutionKindPrice
	case CategoryPurchase:
		return ResolutionKindPurchaseOrder
	default:
		return ResolutionKindNote
	}
}
