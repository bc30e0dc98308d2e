package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/repository/common"
)

type ProjectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// CreateProject публикует новый проект клиента.
func (r *ProjectRepository) CreateProject(ctx context.Context, p *models.Project) error {
	query := `
		INSERT INTO projects (client_id, title, description, domain, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query, p.ClientID, p.Title, p.Description, p.Domain, models.ProjectStatusOpen).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetProjectByID возвращает проект.
func (r *ProjectRepository) GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return common.GetByID[models.Project](ctx, r.db, "projects", id, ErrProjectNotFound)
}

// CreateProposal сохраняет предложение фрилансера вместе с вехами.
func (r *ProjectRepository) CreateProposal(ctx context.Context, p *models.Proposal) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO proposals (project_id, freelancer_id, cover_letter, amount, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`, p.ProjectID, p.FreelancerID, p.CoverLetter, p.Amount, models.ProposalStatusPending).
			Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("project repository: create proposal: %w", err)
		}

		for i := range p.Milestones {
			m := &p.Milestones[i]
			m.ProposalID = p.ID
			err := tx.QueryRowContext(ctx, `
				INSERT INTO proposal_milestones (proposal_id, idx, title, amount, due_date)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, m.ProposalID, m.Idx, m.Title, m.Amount, m.DueDate).Scan(&m.ID)
			if err != nil {
				return fmt.Errorf("project repository: create proposal milestone %d: %w", m.Idx, err)
			}
		}

		return nil
	})
}

// GetProposalByID возвращает предложение вместе с вехами.
func (r *ProjectRepository) GetProposalByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	proposal, err := common.GetByID[models.Proposal](ctx, r.db, "proposals", id, ErrProposalNotFound)
	if err != nil {
		return nil, err
	}

	if err := r.db.SelectContext(ctx, &proposal.Milestones, `
		SELECT * FROM proposal_milestones WHERE proposal_id = $1 ORDER BY idx
	`, id); err != nil {
		return nil, err
	}

	return proposal, nil
}

// ListProposalsByProject возвращает предложения по проекту.
func (r *ProjectRepository) ListProposalsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Proposal, error) {
	var proposals []models.Proposal
	err := r.db.SelectContext(ctx, &proposals, `
		SELECT * FROM proposals WHERE project_id = $1 ORDER BY created_at
	`, projectID)
	return proposals, err
}
