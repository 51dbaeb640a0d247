package domain

// AllocationTarget says where a registered good is destined.
type AllocationTarget string

const (
	AllocationResale    AllocationTarget = "RESALE"
	AllocationFleet     AllocationTarget = "FLEET"
	AllocationWarehouse AllocationTarget = "WAREHOUSE"
)

// Valid reports whether the allocation target is known. Empty is allowed,
// the form does not force a destination.
func (a AllocationTarget) Valid() bool {
	switch a {
	case "", AllocationResale, AllocationFleet, AllocationWarehouse:
		return true
	}
	return false
}

// GoodsDetails carries the extra fields of a goods-registration request.
type GoodsDetails struct {
	Code        string           `json:"code,omitempty"`
	Dimensions  string           `json:"dimensions,omitempty"`
	Application string           `json:"application,omitempty"`
	Allocation  AllocationTarget `json:"allocation,omitempty"`
}

// ReportAction is the follow-up a maintenance report demands.
type ReportAction string

const (
	ReportActionNextPreventive      ReportAction = "NEXT_PREVENTIVE"
	ReportActionImmediateCorrective ReportAction = "IMMEDIATE_CORRECTIVE"
	ReportActionInProgress          ReportAction = "IN_PROGRESS"
	ReportActionMisuseBillable      ReportAction = "MISUSE_BILLABLE"
)

// Valid reports whether the action is a known follow-up.
func (a ReportAction) Valid() bool {
	switch a {
	case ReportActionNextPreventive, ReportActionImmediateCorrective, ReportActionInProgress, ReportActionMisuseBillable:
		return true
	}
	return false
}

// ReportDetails carries the extra fields of a report-control record.
type ReportDetails struct {
	Company      string       `json:"company"`
	AssetTag     string       `json:"asset_tag,omitempty"`
	ReportNumber string       `json:"report_number,omitempty"`
	Action       ReportAction `json:"action"`
}

// TicketDetails is the category-specific detail variant persisted with the
// ticket. At most one member is set, and it must match the category.
type TicketDetails struct {
	Goods  *GoodsDetails  `json:"goods,omitempty"`
	Report *ReportDetails `json:"report,omitempty"`
}

// MatchesCategory checks that the populated variant belongs to the category.
func (d *TicketDetails) MatchesCategory(c TicketCategory) bool {
	if d == nil {
		return true
	}
	if d.Goods != nil && c != CategoryGoodsRegistration {
		return false
	}
	if d.Report != nil && c != CategoryReportControl {
		return false
	}
	return true
}
