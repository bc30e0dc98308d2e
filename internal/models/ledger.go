package models

import (
	"time"

	"github.com/google/uuid"
)

// UserBalance представляет баланс пользователя на платформе.
type UserBalance struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Available float64   `db:"available" json:"available"`
	Frozen    float64   `db:"frozen" json:"frozen"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LedgerTransaction - неизменяемая запись о движении средств. Таблица
// append-only: записи не обновляются и не удаляются, сумма записей по
// контракту сверяется с его locked_amount и total_amount.
// OpKey - логический ключ операции, по которому обеспечивается
// идемпотентность повторных вызовов.
type LedgerTransaction struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	OpKey       string     `db:"op_key" json:"op_key"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	ContractID  *uuid.UUID `db:"contract_id" json:"contract_id,omitempty"`
	Type        string     `db:"type" json:"type"`
	Amount      float64    `db:"amount" json:"amount"`
	Description *string    `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
