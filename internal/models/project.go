package models

import (
	"time"

	"github.com/google/uuid"
)

// Project описывает проект, на который клиент нанимает фрилансера.
type Project struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ClientID     uuid.UUID  `db:"client_id" json:"client_id"`
	Title        string     `db:"title" json:"title"`
	Description  string     `db:"description" json:"description"`
	Domain       string     `db:"domain" json:"domain"`
	Status       string     `db:"status" json:"status"`
	FreelancerID *uuid.UUID `db:"freelancer_id" json:"freelancer_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Proposal представляет отклик фрилансера на проект.
type Proposal struct {
	ID           uuid.UUID `db:"id" json:"id"`
	ProjectID    uuid.UUID `db:"project_id" json:"project_id"`
	FreelancerID uuid.UUID `db:"freelancer_id" json:"freelancer_id"`
	CoverLetter  string    `db:"cover_letter" json:"cover_letter"`
	Amount       float64   `db:"amount" json:"amount"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Milestones []ProposalMilestone `json:"milestones,omitempty"`
}

// ProposalMilestone описывает веху внутри предложения. При принятии
// предложения вехи копируются в контракт и после этого не меняются.
type ProposalMilestone struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	ProposalID uuid.UUID  `db:"proposal_id" json:"proposal_id"`
	Idx        int        `db:"idx" json:"idx"`
	Title      string     `db:"title" json:"title"`
	Amount     float64    `db:"amount" json:"amount"`
	DueDate    *time.Time `db:"due_date" json:"due_date,omitempty"`
}
