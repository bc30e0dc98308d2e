package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/repository/common"
)

var (
	ErrContractNotFound   = errors.New("contract not found")
	ErrProposalNotFound   = errors.New("proposal not found")
	ErrProjectNotFound    = errors.New("project not found")
	ErrNotProjectOwner    = errors.New("project is owned by another client")
	ErrProjectNotOpen     = errors.New("project is not open")
	ErrProposalNotPending = errors.New("proposal is not pending")
	ErrAlreadySigned      = errors.New("contract is already signed")

	// ErrStateConflict возвращается, когда compare-and-set перехода не
	// нашёл строку в ожидаемом состоянии: состояние уже продвинуто
	// конкурентным вызовом.
	ErrStateConflict = errors.New("entity state already advanced")
)

type ContractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// AcceptProposal применяет принятие предложения как единую транзакцию:
// предложение помечается accepted, остальные предложения проекта rejected,
// проект становится assigned, создаётся контракт с вехами из предложения.
// Либо фиксируются все четыре записи, либо ни одна.
func (r *ContractRepository) AcceptProposal(ctx context.Context, proposalID, clientID uuid.UUID) (*models.Contract, error) {
	var contract models.Contract

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var proposal models.Proposal
		err := tx.GetContext(ctx, &proposal, `SELECT * FROM proposals WHERE id = $1 FOR UPDATE`, proposalID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProposalNotFound
		}
		if err != nil {
			return err
		}

		var project models.Project
		err = tx.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = $1 FOR UPDATE`, proposal.ProjectID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProjectNotFound
		}
		if err != nil {
			return err
		}

		if project.ClientID != clientID {
			return ErrNotProjectOwner
		}
		if project.Status != models.ProjectStatusOpen {
			return ErrProjectNotOpen
		}
		if proposal.Status != models.ProposalStatusPending {
			return ErrProposalNotPending
		}

		// Принимаем выигравшее предложение, остальные отклоняем.
		if _, err := tx.ExecContext(ctx, `
			UPDATE proposals SET status = $2, updated_at = NOW() WHERE id = $1
		`, proposal.ID, models.ProposalStatusAccepted); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE proposals SET status = $3, updated_at = NOW()
			WHERE project_id = $1 AND id <> $2 AND status = $4
		`, project.ID, proposal.ID, models.ProposalStatusRejected, models.ProposalStatusPending); err != nil {
			return err
		}

		// Проект закрепляется за выигравшим фрилансером.
		if _, err := tx.ExecContext(ctx, `
			UPDATE projects SET status = $2, freelancer_id = $3, updated_at = NOW() WHERE id = $1
		`, project.ID, models.ProjectStatusAssigned, proposal.FreelancerID); err != nil {
			return err
		}

		// Контракт создаётся до подтверждения заморозки средств: полная
		// сумма резервируется вызовом леджера уже после коммита, поэтому
		// начальный статус - pending_funding с нулевым locked_amount.
		err = tx.GetContext(ctx, &contract, `
			INSERT INTO contracts (project_id, client_id, freelancer_id, total_amount, locked_amount, status)
			VALUES ($1, $2, $3, $4, 0, $5)
			RETURNING *
		`, project.ID, clientID, proposal.FreelancerID, proposal.Amount, models.ContractStatusPendingFunding)
		if err != nil {
			return fmt.Errorf("contract repository: create contract: %w", err)
		}

		var proposalMilestones []models.ProposalMilestone
		if err := tx.SelectContext(ctx, &proposalMilestones, `
			SELECT * FROM proposal_milestones WHERE proposal_id = $1 ORDER BY idx
		`, proposal.ID); err != nil {
			return err
		}

		// Предложение без явных вех превращается в контракт с единственной
		// вехой на полную сумму.
		if len(proposalMilestones) == 0 {
			proposalMilestones = []models.ProposalMilestone{{Idx: 0, Title: project.Title, Amount: proposal.Amount}}
		}

		for _, pm := range proposalMilestones {
			var m models.Milestone
			err := tx.GetContext(ctx, &m, `
				INSERT INTO milestones (contract_id, idx, title, amount, due_date, state)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING *
			`, contract.ID, pm.Idx, pm.Title, pm.Amount, pm.DueDate, models.MilestoneStatePending)
			if err != nil {
				return fmt.Errorf("contract repository: create milestone %d: %w", pm.Idx, err)
			}
			contract.Milestones = append(contract.Milestones, m)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &contract, nil
}

// MarkFunded переводит контракт pending_funding -> active после
// подтверждённой заморозки средств.
func (r *ContractRepository) MarkFunded(ctx context.Context, contractID uuid.UUID, txRef string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contracts
		SET status = $2, locked_amount = total_amount, funding_tx_ref = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
	`, contractID, models.ContractStatusActive, txRef, models.ContractStatusPendingFunding)
	if err != nil {
		return err
	}
	return requireRow(res, ErrStateConflict)
}

// GetByID возвращает контракт вместе с вехами.
func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	contract, err := common.GetByID[models.Contract](ctx, r.db, "contracts", id, ErrContractNotFound)
	if err != nil {
		return nil, err
	}

	if err := r.db.SelectContext(ctx, &contract.Milestones, `
		SELECT * FROM milestones WHERE contract_id = $1 ORDER BY idx
	`, id); err != nil {
		return nil, err
	}

	return contract, nil
}

// SetSignature записывает подпись фрилансера. Контракт можно подписать
// ровно один раз.
func (r *ContractRepository) SetSignature(ctx context.Context, contractID uuid.UUID, signature string) (time.Time, error) {
	var signedAt time.Time
	err := r.db.GetContext(ctx, &signedAt, `
		UPDATE contracts
		SET freelancer_signature = $2, signed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND freelancer_signature IS NULL
		RETURNING signed_at
	`, contractID, signature)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrAlreadySigned
	}
	return signedAt, err
}

// UpdateStatus выполняет compare-and-set статуса контракта.
func (r *ContractRepository) UpdateStatus(ctx context.Context, contractID uuid.UUID, from, to string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contracts SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2
	`, contractID, from, to)
	if err != nil {
		return err
	}
	return requireRow(res, ErrStateConflict)
}

// ListByUser возвращает контракты, в которых пользователь является стороной.
func (r *ContractRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	var contracts []models.Contract
	err := r.db.SelectContext(ctx, &contracts, `
		SELECT * FROM contracts
		WHERE client_id = $1 OR freelancer_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return contracts, err
}

// requireRow превращает нулевое число затронутых строк в ошибку CAS.
func requireRow(res sql.Result, conflictErr error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return conflictErr
	}
	return nil
}
