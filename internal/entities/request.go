package entities

import (
	"time"

	"github.com/shopspring/decimal"

	"crm-system/pkg/constants"
	"crm-system/pkg/types"
)

type Request struct {
	ID            string                  `json:"id" db:"id"`
	Title         string                  `json:"title" db:"title"`
	Type          constants.RequestType   `json:"type" db:"type"`
	InitialStatus constants.RequestStatus `json:"initialStatus" db:"initial_status"`
	CurrentStatus constants.RequestStatus `json:"currentStatus" db:"current_status"`
	Price         decimal.NullDecimal     `json:"price" db:"price"`
	CustomFields  map[string]interface{}  `json:"customFields" db:"custom_fields"`
	Archived      bool                    `json:"archived" db:"archived"`
	ClientID      string                  `json:"clientId" db:"client_id"`
	AssignedToID  *string                 `json:"assignedToId" db:"assigned_to_id"`
	CreatedByID   string                  `json:"createdById" db:"created_by_id"`

	types.BaseEntity
}

// RequestEvent is one recorded transition. FromStatus is nil only for the creation event.
type RequestEvent struct {
	ID            string                   `json:"id" db:"id"`
	Seq           int64                    `json:"-" db:"seq"`
	RequestID     string                   `json:"requestId" db:"request_id"`
	FromStatus    *constants.RequestStatus `json:"fromStatus" db:"from_status"`
	ToStatus      constants.RequestStatus  `json:"toStatus" db:"to_status"`
	Comment       *string                  `json:"comment" db:"comment"`
	ChangedByID   string                   `json:"changedById" db:"changed_by_id"`
	ChangedByName string                   `json:"changedByName,omitempty" db:"-"`
	CreatedAt     time.Time                `json:"createdAt" db:"created_at"`
}

// RequestView is a request with its relations resolved, as returned to callers.
type RequestView struct {
	Request

	Client           *ClientRef          `json:"client"`
	AssignedTo       *UserRef            `json:"assignedTo"`
	CreatedBy        *UserRef            `json:"createdBy"`
	Installment      *InstallmentDetails `json:"installmentDetails"`
	LatestEvent      *RequestEvent       `json:"latestEvent"`
	CommentsCount    int                 `json:"commentsCount"`
	AttachmentsCount int                 `json:"attachmentsCount"`
}
