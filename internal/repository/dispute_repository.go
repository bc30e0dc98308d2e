package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/repository/common"
)

var ErrDisputeNotFound = errors.New("dispute not found")

type DisputeRepository struct {
	db *sqlx.DB
}

func NewDisputeRepository(db *sqlx.DB) *DisputeRepository {
	return &DisputeRepository{db: db}
}

// Create записывает спор и помечает контракт disputed одной транзакцией.
// Если спор привязан к вехе, веха тоже переводится в disputed. Спор не
// создаётся, если контракт уже продвинут из active конкурентным вызовом.
func (r *DisputeRepository) Create(ctx context.Context, d *models.Dispute) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE contracts SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3
		`, d.ContractID, models.ContractStatusDisputed, models.ContractStatusActive)
		if err != nil {
			return err
		}
		if err := requireRow(res, ErrStateConflict); err != nil {
			return err
		}

		if d.MilestoneIdx != nil {
			res, err := tx.ExecContext(ctx, `
				UPDATE milestones SET state = $3, updated_at = NOW()
				WHERE contract_id = $1 AND idx = $2 AND state <> $4
			`, d.ContractID, *d.MilestoneIdx, models.MilestoneStateDisputed, models.MilestoneStatePaid)
			if err != nil {
				return err
			}
			if err := requireRow(res, ErrStateConflict); err != nil {
				return err
			}
		}

		return tx.GetContext(ctx, &d.CreatedAt, `
			INSERT INTO disputes (id, contract_id, raised_by, raiser_role, reason, domain, amount, milestone_idx, status, assigned_arbitrator_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at
		`, d.ID, d.ContractID, d.RaisedBy, d.RaiserRole, d.Reason, d.Domain, d.Amount, d.MilestoneIdx, d.Status, d.AssignedArbitratorID)
	})
}

// GetByID возвращает спор по идентификатору.
func (r *DisputeRepository) GetByID(ctx context.Context, id string) (*models.Dispute, error) {
	var d models.Dispute
	err := r.db.GetContext(ctx, &d, `SELECT * FROM disputes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDisputeNotFound
	}
	return &d, err
}

// UpdateStatus выполняет compare-and-set статуса спора.
func (r *DisputeRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes SET status = $3 WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return err
	}
	return requireRow(res, ErrStateConflict)
}

// Assign закрепляет арбитра за спором и переводит его OPEN -> UNDER_REVIEW.
func (r *DisputeRepository) Assign(ctx context.Context, id string, arbitratorID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE disputes SET assigned_arbitrator_id = $2, status = $3
		WHERE id = $1 AND status = $4 AND assigned_arbitrator_id IS NULL
	`, id, arbitratorID, models.DisputeStatusUnderReview, models.DisputeStatusOpen)
	if err != nil {
		return err
	}
	return requireRow(res, ErrStateConflict)
}

// Resolve фиксирует вынесенное решение после подтверждённого расчёта:
// спор UNDER_REVIEW -> RESOLVED, контракт получает финальный статус,
// остаток заморозки по спорной сумме снимается. Одна транзакция.
func (r *DisputeRepository) Resolve(ctx context.Context, d *models.Dispute, outcome, decision, txRef, contractStatus string) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		now := time.Now()
		res, err := tx.ExecContext(ctx, `
			UPDATE disputes
			SET status = $2, outcome = $3, decision = $4, settlement_tx_ref = $5, resolved_at = $6
			WHERE id = $1 AND status = $7
		`, d.ID, models.DisputeStatusResolved, outcome, decision, txRef, now, models.DisputeStatusUnderReview)
		if err != nil {
			return err
		}
		if err := requireRow(res, ErrStateConflict); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE contracts
			SET status = $2, locked_amount = GREATEST(locked_amount - $3, 0), updated_at = NOW()
			WHERE id = $1
		`, d.ContractID, contractStatus, d.Amount); err != nil {
			return err
		}

		// Спорная веха при решении в пользу фрилансера считается выплаченной.
		if d.MilestoneIdx != nil && decision == models.DisputeDecisionRelease {
			if _, err := tx.ExecContext(ctx, `
				UPDATE milestones SET state = $3, paid_tx_ref = $4, updated_at = NOW()
				WHERE contract_id = $1 AND idx = $2 AND state = $5
			`, d.ContractID, *d.MilestoneIdx, models.MilestoneStatePaid, txRef, models.MilestoneStateDisputed); err != nil {
				return err
			}
		}

		d.Status = models.DisputeStatusResolved
		d.Outcome = &outcome
		d.Decision = &decision
		d.SettlementTxRef = &txRef
		d.ResolvedAt = &now
		return nil
	})
}

// ListByUser возвращает споры по контрактам, где пользователь - сторона
// или назначенный арбитр.
func (r *DisputeRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	var disputes []models.Dispute
	err := r.db.SelectContext(ctx, &disputes, `
		SELECT d.* FROM disputes d
		JOIN contracts c ON d.contract_id = c.id
		WHERE c.client_id = $1 OR c.freelancer_id = $1 OR d.assigned_arbitrator_id = $1
		ORDER BY d.created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return disputes, err
}
