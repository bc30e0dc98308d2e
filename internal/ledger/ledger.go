package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownContract   = errors.New("unknown contract")
)

// Adapter - граница перевода средств. Ядро считает каждый вызов атомарным
// и идемпотентным по логическому ключу операции: повторный вызов с тем же
// ключом возвращает ссылку на уже выполненную транзакцию и не двигает
// средства второй раз. Задержки и отказы адаптера обрабатывает вызывающая
// сторона: сущность остаётся в явном промежуточном статусе и вызов
// повторяется с тем же ключом.
type Adapter interface {
	// Lock замораживает средства клиента под контракт.
	Lock(ctx context.Context, contractID uuid.UUID, amount float64, payerID uuid.UUID) (string, error)
	// Release переводит замороженные средства контракта получателю.
	Release(ctx context.Context, contractID uuid.UUID, opKey string, amount float64, payeeID uuid.UUID) (string, error)
	// Refund возвращает замороженные средства контракта клиенту.
	Refund(ctx context.Context, contractID uuid.UUID, opKey string, amount float64, payeeID uuid.UUID) (string, error)
	// DebitPenalty списывает штраф с пользователя.
	DebitPenalty(ctx context.Context, userID uuid.UUID, opKey string, amount float64) (string, error)
	// CreditReward начисляет вознаграждение пользователю.
	CreditReward(ctx context.Context, userID uuid.UUID, opKey string, amount float64) (string, error)
	// BalanceOf возвращает доступный баланс пользователя.
	BalanceOf(ctx context.Context, userID uuid.UUID) (float64, error)
}

// LockKey - ключ операции заморозки средств контракта.
func LockKey(contractID uuid.UUID) string {
	return fmt.Sprintf("lock:%s", contractID)
}

// ReleaseKey - ключ выплаты по вехе: одна веха выплачивается не более
// одного раза.
func ReleaseKey(contractID uuid.UUID, idx int) string {
	return fmt.Sprintf("release:%s:%d", contractID, idx)
}

// SettlementKey - ключ расчёта по спору.
func SettlementKey(disputeID string) string {
	return fmt.Sprintf("settle:%s", disputeID)
}

// PenaltyKey - ключ штрафа за отмену бронирования.
func PenaltyKey(gigID uuid.UUID) string {
	return fmt.Sprintf("penalty:%s", gigID)
}

// RewardKey - ключ вознаграждения арбитра за разрешённый спор.
func RewardKey(disputeID string) string {
	return fmt.Sprintf("reward:%s", disputeID)
}
