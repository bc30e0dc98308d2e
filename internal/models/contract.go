package models

import (
	"time"

	"github.com/google/uuid"
)

// Contract описывает подписанный договор между клиентом и фрилансером.
// Инварианты: locked_amount + сумма выплаченных вех == total_amount,
// locked_amount никогда не превышает total_amount.
type Contract struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	ProjectID           uuid.UUID  `db:"project_id" json:"project_id"`
	ClientID            uuid.UUID  `db:"client_id" json:"client_id"`
	FreelancerID        uuid.UUID  `db:"freelancer_id" json:"freelancer_id"`
	TotalAmount         float64    `db:"total_amount" json:"total_amount"`
	LockedAmount        float64    `db:"locked_amount" json:"locked_amount"`
	Status              string     `db:"status" json:"status"`
	FreelancerSignature *string    `db:"freelancer_signature" json:"freelancer_signature,omitempty"`
	SignedAt            *time.Time `db:"signed_at" json:"signed_at,omitempty"`
	FundingTxRef        *string    `db:"funding_tx_ref" json:"funding_tx_ref,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`

	Milestones []Milestone `json:"milestones,omitempty"`
}

// IsParty проверяет, является ли пользователь стороной контракта.
func (c *Contract) IsParty(userID uuid.UUID) bool {
	return c.ClientID == userID || c.FreelancerID == userID
}

// PartyRole возвращает роль пользователя в контракте.
func (c *Contract) PartyRole(userID uuid.UUID) (string, bool) {
	switch userID {
	case c.ClientID:
		return DisputeRoleClient, true
	case c.FreelancerID:
		return DisputeRoleFreelancer, true
	}
	return "", false
}

// IsSigned сообщает, подписан ли контракт фрилансером.
func (c *Contract) IsSigned() bool {
	return c.FreelancerSignature != nil
}

// Milestone описывает веху контракта. Принадлежит ровно одному контракту,
// сумма неизменна после подписания.
type Milestone struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ContractID uuid.UUID  `db:"contract_id" json:"contract_id"`
	Idx        int        `db:"idx" json:"idx"`
	Title      string     `db:"title" json:"title"`
	Amount     float64    `db:"amount" json:"amount"`
	DueDate    *time.Time `db:"due_date" json:"due_date,omitempty"`
	State      string     `db:"state" json:"state"`
	PaidTxRef  *string    `db:"paid_tx_ref" json:"paid_tx_ref,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// MilestoneSubmission хранит отправленное подтверждение работы по вехе.
// На пару (contract_id, idx) существует не более одной записи: повторная
// отправка в состояниях pending/revision_requested перезаписывает прежнюю.
type MilestoneSubmission struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	ContractID  uuid.UUID  `db:"contract_id" json:"contract_id"`
	Idx         int        `db:"idx" json:"idx"`
	ProofRef    string     `db:"proof_ref" json:"proof_ref"`
	Description string     `db:"description" json:"description"`
	Feedback    *string    `db:"feedback" json:"feedback,omitempty"`
	SubmittedAt time.Time  `db:"submitted_at" json:"submitted_at"`
	ReviewedAt  *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
}
