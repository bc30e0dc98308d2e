package service

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-escrow/internal/repository"
	"github.com/ignatzorin/freelance-escrow/internal/validation"
)

// ProjectStore описывает зависимости ProjectService от слоя хранилища.
type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project) error
	GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	CreateProposal(ctx context.Context, p *models.Proposal) error
	GetProposalByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error)
	ListProposalsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Proposal, error)
}

// ProjectService ведёт проекты и отклики до принятия предложения.
type ProjectService struct {
	projects ProjectStore
}

func NewProjectService(projects ProjectStore) *ProjectService {
	return &ProjectService{projects: projects}
}

// CreateProject публикует новый проект клиента.
func (s *ProjectService) CreateProject(ctx context.Context, clientID uuid.UUID, title, description, domain string) (*models.Project, error) {
	if err := validation.ValidateNonEmpty("название", title); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("название", title, 3, 200); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateDomain(domain); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	project := &models.Project{
		ClientID:    clientID,
		Title:       title,
		Description: description,
		Domain:      domain,
		Status:      models.ProjectStatusOpen,
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось создать проект")
	}
	return project, nil
}

// GetProject возвращает проект. Проекты публичны внутри платформы.
func (s *ProjectService) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.projects.GetProjectByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, apperror.ErrProjectNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить проект")
	}
	return project, nil
}

// SubmitProposal принимает отклик фрилансера на открытый проект. Разбивка
// на вехи опциональна, но если она передана, суммы вех обязаны сходиться
// с суммой предложения.
func (s *ProjectService) SubmitProposal(ctx context.Context, projectID, freelancerID uuid.UUID, coverLetter string, amount float64, milestones []models.ProposalMilestone) (*models.Proposal, error) {
	if err := validation.ValidateAmount("сумма предложения", amount); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusOpen {
		return nil, apperror.New(apperror.ErrCodeConflict, "проект не принимает отклики")
	}
	if project.ClientID == freelancerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя откликнуться на собственный проект")
	}

	if len(milestones) > 0 {
		var total float64
		for i := range milestones {
			if err := validation.ValidateAmount("сумма вехи", milestones[i].Amount); err != nil {
				return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
			}
			milestones[i].Idx = i
			total += milestones[i].Amount
		}
		if math.Abs(total-amount) > 1e-9 {
			return nil, apperror.New(apperror.ErrCodeValidation, "сумма вех должна совпадать с суммой предложения")
		}
	}

	proposal := &models.Proposal{
		ProjectID:    projectID,
		FreelancerID: freelancerID,
		CoverLetter:  coverLetter,
		Amount:       amount,
		Status:       models.ProposalStatusPending,
		Milestones:   milestones,
	}
	if err := s.projects.CreateProposal(ctx, proposal); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось отправить отклик")
	}
	return proposal, nil
}

// ListProposals возвращает отклики по проекту его владельцу.
func (s *ProjectService) ListProposals(ctx context.Context, projectID, callerID uuid.UUID) ([]models.Proposal, error) {
	project, err := s.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != callerID {
		return nil, apperror.ErrForbidden
	}
	return s.projects.ListProposalsByProject(ctx, projectID)
}
