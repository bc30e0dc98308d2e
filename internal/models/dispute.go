package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Dispute описывает спор по контракту. Записи споров никогда не удаляются.
type Dispute struct {
	ID                   string     `db:"id" json:"id"`
	ContractID           uuid.UUID  `db:"contract_id" json:"contract_id"`
	RaisedBy             uuid.UUID  `db:"raised_by" json:"raised_by"`
	RaiserRole           string     `db:"raiser_role" json:"raiser_role"`
	Reason               string     `db:"reason" json:"reason"`
	Domain               string     `db:"domain" json:"domain"`
	Amount               float64    `db:"amount" json:"amount"`
	MilestoneIdx         *int       `db:"milestone_idx" json:"milestone_idx,omitempty"`
	Status               string     `db:"status" json:"status"`
	AssignedArbitratorID *uuid.UUID `db:"assigned_arbitrator_id" json:"assigned_arbitrator_id,omitempty"`
	Outcome              *string    `db:"outcome" json:"outcome,omitempty"`
	Decision             *string    `db:"decision" json:"decision,omitempty"`
	SettlementTxRef      *string    `db:"settlement_tx_ref" json:"settlement_tx_ref,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	ResolvedAt           *time.Time `db:"resolved_at" json:"resolved_at,omitempty"`
}

// IsResolved сообщает, вынесено ли по спору окончательное решение.
func (d *Dispute) IsResolved() bool {
	return d.Status == DisputeStatusResolved
}

// NewDisputeID генерирует человекочитаемый идентификатор спора,
// производный от времени: DSP-20060102150405-a1b2.
func NewDisputeID(now time.Time) string {
	suffix := make([]byte, 2)
	_, _ = rand.Read(suffix)
	return "DSP-" + now.UTC().Format("20060102150405") + "-" + hex.EncodeToString(suffix)
}
