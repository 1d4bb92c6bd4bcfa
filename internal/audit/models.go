package audit

import "time"

// Action names a workflow event worth keeping a trail of.
type Action string

const (
	ActionUserCreated Action = "user_created"

	ActionLandRegistered       Action = "land_registered"
	ActionLandApproved         Action = "land_approved"
	ActionLandListedForSale    Action = "land_listed_for_sale"
	ActionLandStatusRestored   Action = "land_status_restored"
	ActionLandDisputed         Action = "land_disputed"
	ActionLandDisputeCleared   Action = "land_dispute_cleared"
	ActionOwnershipTransferred Action = "ownership_transferred"

	ActionDisputeFiled    Action = "dispute_filed"
	ActionDisputeResolved Action = "dispute_resolved"
	ActionDisputeDropped  Action = "dispute_dropped"

	ActionTransferOpened    Action = "transfer_opened"
	ActionBidPlaced         Action = "bid_placed"
	ActionTransferConfirmed Action = "transfer_confirmed"
	ActionTransferCanceled  Action = "transfer_canceled"
	ActionTransferApproved  Action = "transfer_approved"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Action    Action    `json:"action"`
	ActorID   string    `json:"actor_id"`
	SubjectID string    `json:"subject_id,omitempty"`
	ParcelID  string    `json:"parcel_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
