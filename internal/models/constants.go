package models

// ProjectStatus константы статусов проектов
const (
	ProjectStatusOpen      = "open"
	ProjectStatusAssigned  = "assigned"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

// ProposalStatus константы статусов предложений
const (
	ProposalStatusPending  = "pending"
	ProposalStatusAccepted = "accepted"
	ProposalStatusRejected = "rejected"
)

// ContractStatus константы статусов контрактов
const (
	ContractStatusPendingFunding = "pending_funding"
	ContractStatusActive         = "active"
	ContractStatusDisputed       = "disputed"
	ContractStatusCompleted      = "completed"
	ContractStatusCancelled      = "cancelled"
)

// MilestoneState константы состояний вех
const (
	MilestoneStatePending           = "pending"
	MilestoneStateSubmitted         = "submitted"
	MilestoneStateRevisionRequested = "revision_requested"
	MilestoneStateApproved          = "approved"
	MilestoneStatePaid              = "paid"
	MilestoneStateDisputed          = "disputed"
)

// DisputeStatus константы статусов споров
const (
	DisputeStatusOpen             = "OPEN"
	DisputeStatusAwaitingEvidence = "AWAITING_EVIDENCE"
	DisputeStatusUnderReview      = "UNDER_REVIEW"
	DisputeStatusResolved         = "RESOLVED"
	DisputeStatusEscalated        = "ESCALATED"
)

// DisputeRole роли инициатора спора
const (
	DisputeRoleClient     = "CLIENT"
	DisputeRoleFreelancer = "FREELANCER"
)

// DisputeOutcome исходы спора
const (
	DisputeOutcomeFreelancer = "FREELANCER"
	DisputeOutcomeClient     = "CLIENT"
	DisputeOutcomePartial    = "PARTIAL"
)

// DisputeDecision решения арбитра
const (
	DisputeDecisionRelease = "RELEASE"
	DisputeDecisionRefund  = "REFUND"
)

// PresenceStatus статусы присутствия арбитра
const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

// GigStatus статусы бронирований арбитра
const (
	GigStatusBooked    = "booked"
	GigStatusActive    = "active"
	GigStatusCompleted = "completed"
	GigStatusCancelled = "cancelled"
)

// Типы записей леджера
const (
	LedgerTxLock    = "lock"
	LedgerTxRelease = "release"
	LedgerTxRefund  = "refund"
	LedgerTxPenalty = "penalty"
	LedgerTxReward  = "reward"
)

// MaxSpecializations максимальное количество специализаций арбитра
const MaxSpecializations = 5

// ValidContractStatuses список валидных статусов контрактов
var ValidContractStatuses = map[string]struct{}{
	ContractStatusPendingFunding: {},
	ContractStatusActive:         {},
	ContractStatusDisputed:       {},
	ContractStatusCompleted:      {},
	ContractStatusCancelled:      {},
}

// ValidMilestoneStates список валидных состояний вех
var ValidMilestoneStates = map[string]struct{}{
	MilestoneStatePending:           {},
	MilestoneStateSubmitted:         {},
	MilestoneStateRevisionRequested: {},
	MilestoneStateApproved:          {},
	MilestoneStatePaid:              {},
	MilestoneStateDisputed:          {},
}

// ValidDisputeDecisions список валидных решений арбитра
var ValidDisputeDecisions = map[string]struct{}{
	DisputeDecisionRelease: {},
	DisputeDecisionRefund:  {},
}

// ValidPresenceStatuses список валидных статусов присутствия
var ValidPresenceStatuses = map[string]struct{}{
	PresenceOnline:  {},
	PresenceOffline: {},
}
