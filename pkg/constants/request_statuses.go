package constants

// RequestStatus is a Kanban pipeline stage.
type RequestStatus string

const (
	StatusNotAnswered     RequestStatus = "NOT_ANSWERED"
	StatusAwaitingClient  RequestStatus = "AWAITING_CLIENT"
	StatusFollowUp        RequestStatus = "FOLLOW_UP"
	StatusAwaitingDocs    RequestStatus = "AWAITING_DOCS"
	StatusAwaitingBankRep RequestStatus = "AWAITING_BANK_REP"
	StatusSold            RequestStatus = "SOLD"
	StatusNotSold         RequestStatus = "NOT_SOLD"
)

// DefaultInitialStatus is used when a request is created without one.
const DefaultInitialStatus = StatusAwaitingClient

// RequestStatuses is the fixed column order of the board.
var RequestStatuses = []RequestStatus{
	StatusNotAnswered,
	StatusAwaitingClient,
	StatusFollowUp,
	StatusAwaitingDocs,
	StatusAwaitingBankRep,
	StatusSold,
	StatusNotSold,
}

var statusTitles = map[RequestStatus]string{
	StatusNotAnswered:     "لم يتم الرد",
	StatusAwaitingClient:  "بانتظار العميل",
	StatusFollowUp:        "متابعة",
	StatusAwaitingDocs:    "بانتظار المستندات",
	StatusAwaitingBankRep: "بانتظار رد البنك",
	StatusSold:            "تم البيع",
	StatusNotSold:         "لم يتم البيع",
}

// StatusTitle returns the display label, or the raw value for unknown statuses.
func StatusTitle(status RequestStatus) string {
	if title, ok := statusTitles[status]; ok {
		return title
	}
	return string(status)
}

func (s RequestStatus) IsValid() bool {
	_, ok := statusTitles[s]
	return ok
}

func (s RequestStatus) String() string {
	return string(s)
}

// RequestType is fixed at creation.
type RequestType string

const (
	RequestTypeCash        RequestType = "CASH"
	RequestTypeInstallment RequestType = "INSTALLMENT"
	RequestTypeUnknown     RequestType = "UNKNOWN"
)

var RequestTypes = []RequestType{RequestTypeCash, RequestTypeInstallment, RequestTypeUnknown}

func (t RequestType) IsValid() bool {
	switch t {
	case RequestTypeCash, RequestTypeInstallment, RequestTypeUnknown:
		return true
	}
	return false
}
