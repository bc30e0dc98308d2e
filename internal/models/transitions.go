package models

// Действия над сущностями ядра. Переходы состояний описаны явными
// таблицами (текущее состояние, действие, роль) -> следующее состояние
// и проверяются до любой мутации, чтобы недопустимые переходы
// отклонялись единообразно, а не переоткрывались в каждом хэндлере.
type Action string

const (
	ActionSubmitProof     Action = "submit_proof"
	ActionRequestRevision Action = "request_revision"
	ActionApprove         Action = "approve"
	ActionMarkPaid        Action = "mark_paid"
	ActionDispute         Action = "dispute"

	ActionFund     Action = "fund"
	ActionSign     Action = "sign"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"

	ActionAssign          Action = "assign"
	ActionRequestEvidence Action = "request_evidence"
	ActionSubmitEvidence  Action = "submit_evidence"
	ActionEscalate        Action = "escalate"
	ActionResolve         Action = "resolve"
)

// Роли, от имени которых выполняются действия.
type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
	RoleArbitrator Role = "arbitrator"
	RoleSystem     Role = "system"
)

type transitionKey struct {
	state  string
	action Action
	role   Role
}

// milestoneTransitions - таблица переходов вехи:
// pending -> submitted -> {approved, revision_requested} -> paid,
// disputed достижим из любого состояния до paid.
var milestoneTransitions = map[transitionKey]string{
	{MilestoneStatePending, ActionSubmitProof, RoleFreelancer}:           MilestoneStateSubmitted,
	{MilestoneStateRevisionRequested, ActionSubmitProof, RoleFreelancer}: MilestoneStateSubmitted,
	{MilestoneStateSubmitted, ActionRequestRevision, RoleClient}:         MilestoneStateRevisionRequested,
	{MilestoneStateSubmitted, ActionApprove, RoleClient}:                 MilestoneStateApproved,
	{MilestoneStateApproved, ActionMarkPaid, RoleSystem}:                 MilestoneStatePaid,

	{MilestoneStatePending, ActionDispute, RoleClient}:               MilestoneStateDisputed,
	{MilestoneStatePending, ActionDispute, RoleFreelancer}:           MilestoneStateDisputed,
	{MilestoneStateSubmitted, ActionDispute, RoleClient}:             MilestoneStateDisputed,
	{MilestoneStateSubmitted, ActionDispute, RoleFreelancer}:         MilestoneStateDisputed,
	{MilestoneStateRevisionRequested, ActionDispute, RoleClient}:     MilestoneStateDisputed,
	{MilestoneStateRevisionRequested, ActionDispute, RoleFreelancer}: MilestoneStateDisputed,
	{MilestoneStateApproved, ActionDispute, RoleClient}:              MilestoneStateDisputed,
	{MilestoneStateApproved, ActionDispute, RoleFreelancer}:          MilestoneStateDisputed,
}

// contractTransitions - таблица переходов контракта.
var contractTransitions = map[transitionKey]string{
	{ContractStatusPendingFunding, ActionFund, RoleSystem}: ContractStatusActive,
	{ContractStatusActive, ActionDispute, RoleClient}:      ContractStatusDisputed,
	{ContractStatusActive, ActionDispute, RoleFreelancer}:  ContractStatusDisputed,
	{ContractStatusActive, ActionComplete, RoleSystem}:     ContractStatusCompleted,
	{ContractStatusActive, ActionCancel, RoleClient}:       ContractStatusCancelled,
	{ContractStatusDisputed, ActionComplete, RoleSystem}:   ContractStatusCompleted,
	{ContractStatusDisputed, ActionCancel, RoleSystem}:     ContractStatusCancelled,
}

// disputeTransitions - таблица переходов спора. Ветка ESCALATED
// существует как задел под многоарбитражный пересмотр: ядро
// гарантирует переход, но не логику его разрешения.
var disputeTransitions = map[transitionKey]string{
	{DisputeStatusOpen, ActionAssign, RoleSystem}:                         DisputeStatusUnderReview,
	{DisputeStatusOpen, ActionRequestEvidence, RoleArbitrator}:            DisputeStatusAwaitingEvidence,
	{DisputeStatusUnderReview, ActionRequestEvidence, RoleArbitrator}:     DisputeStatusAwaitingEvidence,
	{DisputeStatusAwaitingEvidence, ActionSubmitEvidence, RoleClient}:     DisputeStatusUnderReview,
	{DisputeStatusAwaitingEvidence, ActionSubmitEvidence, RoleFreelancer}: DisputeStatusUnderReview,
	{DisputeStatusOpen, ActionEscalate, RoleArbitrator}:                   DisputeStatusEscalated,
	{DisputeStatusUnderReview, ActionEscalate, RoleArbitrator}:            DisputeStatusEscalated,
	{DisputeStatusUnderReview, ActionResolve, RoleArbitrator}:             DisputeStatusResolved,
}

// NextMilestoneState возвращает следующее состояние вехи или false,
// если переход недопустим.
func NextMilestoneState(state string, action Action, role Role) (string, bool) {
	next, ok := milestoneTransitions[transitionKey{state, action, role}]
	return next, ok
}

// NextContractStatus возвращает следующий статус контракта или false,
// если переход недопустим.
func NextContractStatus(status string, action Action, role Role) (string, bool) {
	next, ok := contractTransitions[transitionKey{status, action, role}]
	return next, ok
}

// NextDisputeStatus возвращает следующий статус спора или false,
// если переход недопустим.
func NextDisputeStatus(status string, action Action, role Role) (string, bool) {
	next, ok := disputeTransitions[transitionKey{status, action, role}]
	return next, ok
}
