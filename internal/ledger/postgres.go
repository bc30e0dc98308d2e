package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-escrow/internal/models"
)

// PostgresLedger - встроенная реализация адаптера на внутренних балансах
// платформы. Идемпотентность обеспечивается уникальным op_key в append-only
// таблице ledger_transactions: повторный вызов с тем же ключом находит
// существующую запись и возвращает её ссылку без движения средств.
type PostgresLedger struct {
	db *sqlx.DB
}

func NewPostgresLedger(db *sqlx.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Lock замораживает средства клиента под контракт.
func (l *PostgresLedger) Lock(ctx context.Context, contractID uuid.UUID, amount float64, payerID uuid.UUID) (string, error) {
	opKey := LockKey(contractID)

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if ref, done, err := existingTx(ctx, tx, opKey); err != nil {
		return "", err
	} else if done {
		return ref, tx.Commit()
	}

	// Проверяем баланс клиента
	var balance models.UserBalance
	err = tx.GetContext(ctx, &balance, `SELECT user_id, available, frozen FROM user_balances WHERE user_id = $1 FOR UPDATE`, payerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInsufficientFunds
		}
		return "", err
	}
	if balance.Available < amount {
		return "", ErrInsufficientFunds
	}

	// Замораживаем средства
	_, err = tx.ExecContext(ctx, `
		UPDATE user_balances SET available = available - $2, frozen = frozen + $2, updated_at = NOW()
		WHERE user_id = $1
	`, payerID, amount)
	if err != nil {
		return "", err
	}

	ref, err := insertTx(ctx, tx, opKey, payerID, &contractID, models.LedgerTxLock, amount, "Заморозка средств по контракту")
	if err != nil {
		return "", err
	}

	return ref, tx.Commit()
}

// Release переводит замороженные средства контракта получателю.
func (l *PostgresLedger) Release(ctx context.Context, contractID uuid.UUID, opKey string, amount float64, payeeID uuid.UUID) (string, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if ref, done, err := existingTx(ctx, tx, opKey); err != nil {
		return "", err
	} else if done {
		return ref, tx.Commit()
	}

	clientID, err := contractClient(ctx, tx, contractID)
	if err != nil {
		return "", err
	}

	// Снимаем заморозку у клиента
	_, err = tx.ExecContext(ctx, `
		UPDATE user_balances SET frozen = frozen - $2, updated_at = NOW()
		WHERE user_id = $1
	`, clientID, amount)
	if err != nil {
		return "", err
	}

	// Начисляем получателю
	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO UPDATE SET available = user_balances.available + $2, updated_at = NOW()
	`, payeeID, amount)
	if err != nil {
		return "", err
	}

	ref, err := insertTx(ctx, tx, opKey, payeeID, &contractID, models.LedgerTxRelease, amount, "Выплата по контракту")
	if err != nil {
		return "", err
	}

	return ref, tx.Commit()
}

// Refund возвращает замороженные средства контракта клиенту.
func (l *PostgresLedger) Refund(ctx context.Context, contractID uuid.UUID, opKey string, amount float64, payeeID uuid.UUID) (string, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if ref, done, err := existingTx(ctx, tx, opKey); err != nil {
		return "", err
	} else if done {
		return ref, tx.Commit()
	}

	// Возвращаем средства клиенту
	_, err = tx.ExecContext(ctx, `
		UPDATE user_balances SET available = available + $2, frozen = frozen - $2, updated_at = NOW()
		WHERE user_id = $1
	`, payeeID, amount)
	if err != nil {
		return "", err
	}

	ref, err := insertTx(ctx, tx, opKey, payeeID, &contractID, models.LedgerTxRefund, amount, "Возврат средств по контракту")
	if err != nil {
		return "", err
	}

	return ref, tx.Commit()
}

// DebitPenalty списывает штраф с пользователя. Баланс может уйти в минус:
// штраф применяется независимо от остатка.
func (l *PostgresLedger) DebitPenalty(ctx context.Context, userID uuid.UUID, opKey string, amount float64) (string, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if ref, done, err := existingTx(ctx, tx, opKey); err != nil {
		return "", err
	} else if done {
		return ref, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, -$2, 0)
		ON CONFLICT (user_id) DO UPDATE SET available = user_balances.available - $2, updated_at = NOW()
	`, userID, amount)
	if err != nil {
		return "", err
	}

	ref, err := insertTx(ctx, tx, opKey, userID, nil, models.LedgerTxPenalty, -amount, "Штраф за отмену бронирования")
	if err != nil {
		return "", err
	}

	return ref, tx.Commit()
}

// CreditReward начисляет вознаграждение пользователю.
func (l *PostgresLedger) CreditReward(ctx context.Context, userID uuid.UUID, opKey string, amount float64) (string, error) {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if ref, done, err := existingTx(ctx, tx, opKey); err != nil {
		return "", err
	} else if done {
		return ref, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_balances (user_id, available, frozen)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO UPDATE SET available = user_balances.available + $2, updated_at = NOW()
	`, userID, amount)
	if err != nil {
		return "", err
	}

	ref, err := insertTx(ctx, tx, opKey, userID, nil, models.LedgerTxReward, amount, "Вознаграждение арбитра")
	if err != nil {
		return "", err
	}

	return ref, tx.Commit()
}

// BalanceOf возвращает доступный баланс пользователя.
func (l *PostgresLedger) BalanceOf(ctx context.Context, userID uuid.UUID) (float64, error) {
	var available float64
	err := l.db.GetContext(ctx, &available, `SELECT available FROM user_balances WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: balance of %s: %w", userID, err)
	}
	return available, nil
}

// ListTransactions возвращает историю движений средств пользователя.
func (l *PostgresLedger) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerTransaction, error) {
	var txs []models.LedgerTransaction
	err := l.db.SelectContext(ctx, &txs, `
		SELECT id, op_key, user_id, contract_id, type, amount, description, created_at
		FROM ledger_transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return txs, err
}

// existingTx ищет уже выполненную операцию по её логическому ключу.
func existingTx(ctx context.Context, tx *sqlx.Tx, opKey string) (string, bool, error) {
	var id uuid.UUID
	err := tx.GetContext(ctx, &id, `SELECT id FROM ledger_transactions WHERE op_key = $1`, opKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id.String(), true, nil
}

// insertTx добавляет запись в append-only журнал и возвращает её id как txRef.
func insertTx(ctx context.Context, tx *sqlx.Tx, opKey string, userID uuid.UUID, contractID *uuid.UUID, txType string, amount float64, description string) (string, error) {
	var id uuid.UUID
	err := tx.GetContext(ctx, &id, `
		INSERT INTO ledger_transactions (op_key, user_id, contract_id, type, amount, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, opKey, userID, contractID, txType, amount, description)
	if err != nil {
		return "", fmt.Errorf("ledger: insert transaction %s: %w", opKey, err)
	}
	return id.String(), nil
}

// contractClient возвращает клиента контракта, чья заморозка расходуется.
func contractClient(ctx context.Context, tx *sqlx.Tx, contractID uuid.UUID) (uuid.UUID, error) {
	var clientID uuid.UUID
	err := tx.GetContext(ctx, &clientID, `SELECT client_id FROM contracts WHERE id = $1`, contractID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ErrUnknownContract
	}
	return clientID, err
}
