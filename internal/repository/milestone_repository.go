package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/repository/common"
)

var (
	ErrMilestoneNotFound  = errors.New("milestone not found")
	ErrSubmissionNotFound = errors.New("milestone submission not found")
)

type MilestoneRepository struct {
	db *sqlx.DB
}

func NewMilestoneRepository(db *sqlx.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

// Get возвращает веху по контракту и индексу.
func (r *MilestoneRepository) Get(ctx context.Context, contractID uuid.UUID, idx int) (*models.Milestone, error) {
	var m models.Milestone
	err := r.db.GetContext(ctx, &m, `SELECT * FROM milestones WHERE contract_id = $1 AND idx = $2`, contractID, idx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMilestoneNotFound
	}
	return &m, err
}

// SubmitProof сохраняет подтверждение работы и переводит веху в submitted.
// Запись подтверждения имеет upsert-семантику: повторная отправка в
// допустимых состояниях перезаписывает прежнюю. Переход и upsert выполняются
// одной транзакцией.
func (r *MilestoneRepository) SubmitProof(ctx context.Context, contractID uuid.UUID, idx int, proofRef, description string) (*models.MilestoneSubmission, error) {
	var sub models.MilestoneSubmission

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE milestones SET state = $3, updated_at = NOW()
			WHERE contract_id = $1 AND idx = $2 AND state IN ($4, $5)
		`, contractID, idx, models.MilestoneStateSubmitted,
			models.MilestoneStatePending, models.MilestoneStateRevisionRequested)
		if err != nil {
			return err
		}
		if err := requireRow(res, ErrStateConflict); err != nil {
			return err
		}

		return tx.GetContext(ctx, &sub, `
			INSERT INTO milestone_submissions (contract_id, idx, proof_ref, description, submitted_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (contract_id, idx) DO UPDATE
			SET proof_ref = $3, description = $4, feedback = NULL, submitted_at = NOW(), reviewed_at = NULL
			RETURNING *
		`, contractID, idx, proofRef, description)
	})
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

// RequestRevision возвращает веху на доработку с комментарием клиента.
func (r *MilestoneRepository) RequestRevision(ctx context.Context, contractID uuid.UUID, idx int, feedback string) (*models.MilestoneSubmission, error) {
	var sub models.MilestoneSubmission

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE milestones SET state = $3, updated_at = NOW()
			WHERE contract_id = $1 AND idx = $2 AND state = $4
		`, contractID, idx, models.MilestoneStateRevisionRequested, models.MilestoneStateSubmitted)
		if err != nil {
			return err
		}
		if err := requireRow(res, ErrStateConflict); err != nil {
			return err
		}

		err = tx.GetContext(ctx, &sub, `
			UPDATE milestone_submissions SET feedback = $3, reviewed_at = NOW()
			WHERE contract_id = $1 AND idx = $2
			RETURNING *
		`, contractID, idx, feedback)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSubmissionNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

// Approve переводит веху submitted -> approved. Только один из
// конкурентных вызовов получает строку, остальные - ErrStateConflict.
func (r *MilestoneRepository) Approve(ctx context.Context, contractID uuid.UUID, idx int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE milestones SET state = $3, updated_at = NOW()
		WHERE contract_id = $1 AND idx = $2 AND state = $4
	`, contractID, idx, models.MilestoneStateApproved, models.MilestoneStateSubmitted)
	if err != nil {
		return err
	}
	return requireRow(res, ErrStateConflict)
}

// MarkPaid фиксирует подтверждённую выплату: веха approved -> paid,
// locked_amount контракта уменьшается на сумму вехи, и контракт
// завершается, когда выплачена последняя веха. Всё одной транзакцией.
func (r *MilestoneRepository) MarkPaid(ctx context.Context, contractID uuid.UUID, idx int, amount float64, txRef string) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE milestones SET state = $3, paid_tx_ref = $4, updated_at = NOW()
			WHERE contract_id = $1 AND idx = $2 AND state = $5
		`, contractID, idx, models.MilestoneStatePaid, txRef, models.MilestoneStateApproved)
		if err != nil {
			return err
		}
		if err := requireRow(res, ErrStateConflict); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE contracts SET locked_amount = locked_amount - $2, updated_at = NOW() WHERE id = $1
		`, contractID, amount); err != nil {
			return err
		}

		var unpaid int
		if err := tx.GetContext(ctx, &unpaid, `
			SELECT COUNT(*) FROM milestones WHERE contract_id = $1 AND state <> $2
		`, contractID, models.MilestoneStatePaid); err != nil {
			return err
		}
		if unpaid == 0 {
			if _, err := tx.ExecContext(ctx, `
				UPDATE contracts SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3
			`, contractID, models.ContractStatusCompleted, models.ContractStatusActive); err != nil {
				return err
			}
		}

		return nil
	})
}

// GetSubmission возвращает подтверждение работы по вехе.
func (r *MilestoneRepository) GetSubmission(ctx context.Context, contractID uuid.UUID, idx int) (*models.MilestoneSubmission, error) {
	var sub models.MilestoneSubmission
	err := r.db.GetContext(ctx, &sub, `
		SELECT * FROM milestone_submissions WHERE contract_id = $1 AND idx = $2
	`, contractID, idx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	return &sub, err
}
