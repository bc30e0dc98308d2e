package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/ledger"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-escrow/internal/repository"
	"github.com/ignatzorin/freelance-escrow/internal/validation"
)

// MilestoneStore описывает зависимости MilestoneService от слоя хранилища.
type MilestoneStore interface {
	Get(ctx context.Context, contractID uuid.UUID, idx int) (*models.Milestone, error)
	SubmitProof(ctx context.Context, contractID uuid.UUID, idx int, proofRef, description string) (*models.MilestoneSubmission, error)
	RequestRevision(ctx context.Context, contractID uuid.UUID, idx int, feedback string) (*models.MilestoneSubmission, error)
	Approve(ctx context.Context, contractID uuid.UUID, idx int) error
	MarkPaid(ctx context.Context, contractID uuid.UUID, idx int, amount float64, txRef string) error
	GetSubmission(ctx context.Context, contractID uuid.UUID, idx int) (*models.MilestoneSubmission, error)
}

// MilestoneService проводит веху по конвейеру pending -> submitted ->
// approved -> paid с возможной петлёй через revision_requested.
type MilestoneService struct {
	milestones MilestoneStore
	contracts  ContractStore
	ledger     ledger.Adapter
	events     EventPublisher
}

func NewMilestoneService(milestones MilestoneStore, contracts ContractStore, lg ledger.Adapter, events EventPublisher) *MilestoneService {
	return &MilestoneService{milestones: milestones, contracts: contracts, ledger: lg, events: events}
}

// SubmitProof принимает подтверждение работы от фрилансера. Разрешено из
// pending и revision_requested; повторная отправка перезаписывает прежнее
// подтверждение и сбрасывает фидбек.
func (s *MilestoneService) SubmitProof(ctx context.Context, contractID uuid.UUID, idx int, freelancerID uuid.UUID, proofRef, description string) (*models.MilestoneSubmission, error) {
	if err := validation.ValidateNonEmpty("ссылка на результат", proofRef); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("ссылка на результат", proofRef, 1, validation.MaxProofRefLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	contract, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.FreelancerID != freelancerID {
		return nil, apperror.ErrForbidden
	}
	if contract.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт не активен")
	}

	milestone, err := s.loadMilestone(ctx, contractID, idx)
	if err != nil {
		return nil, err
	}
	if _, ok := models.NextMilestoneState(milestone.State, models.ActionSubmitProof, models.RoleFreelancer); !ok {
		return nil, apperror.New(apperror.ErrCodeConflict, "веха не принимает подтверждения в текущем состоянии")
	}

	submission, err := s.milestones.SubmitProof(ctx, contractID, idx, proofRef, description)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrMilestoneNotFound):
			return nil, apperror.New(apperror.ErrCodeNotFound, "веха не найдена")
		case errors.Is(err, repository.ErrStateConflict):
			return nil, apperror.New(apperror.ErrCodeConflict, "веха не принимает подтверждения в текущем состоянии")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось отправить подтверждение")
	}

	publishTo(s.events, EventMilestoneSubmitted, submission, contract.ClientID)
	return submission, nil
}

// RequestRevision возвращает веху фрилансеру на доработку с обязательным
// фидбеком клиента.
func (s *MilestoneService) RequestRevision(ctx context.Context, contractID uuid.UUID, idx int, clientID uuid.UUID, feedback string) (*models.MilestoneSubmission, error) {
	if err := validation.ValidateNonEmpty("фидбек", feedback); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	contract, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	if contract.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт не активен")
	}

	milestone, err := s.loadMilestone(ctx, contractID, idx)
	if err != nil {
		return nil, err
	}
	if _, ok := models.NextMilestoneState(milestone.State, models.ActionRequestRevision, models.RoleClient); !ok {
		return nil, apperror.New(apperror.ErrCodeConflict, "доработку можно запросить только по отправленной вехе")
	}

	submission, err := s.milestones.RequestRevision(ctx, contractID, idx, feedback)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrMilestoneNotFound):
			return nil, apperror.New(apperror.ErrCodeNotFound, "веха не найдена")
		case errors.Is(err, repository.ErrStateConflict):
			return nil, apperror.New(apperror.ErrCodeConflict, "доработку можно запросить только по отправленной вехе")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось запросить доработку")
	}

	publishTo(s.events, EventMilestoneRevision, submission, contract.FreelancerID)
	return submission, nil
}

// ApproveMilestone принимает веху и выплачивает её сумму фрилансеру.
// Переход submitted -> approved выполняется условным обновлением, поэтому
// из двух конкурентных одобрений побеждает ровно одно. Выплата через
// леджер идемпотентна по ключу вехи: повтор после сбоя записи paid не
// создаёт второй перевод.
func (s *MilestoneService) ApproveMilestone(ctx context.Context, contractID uuid.UUID, idx int, clientID uuid.UUID) (*models.Milestone, error) {
	contract, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	// По спорному или закрытому контракту выплаты заморожены: иначе
	// выплата во время спора опустошит резерв под будущий REFUND.
	if contract.Status != models.ContractStatusActive {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт не активен")
	}

	milestone, err := s.loadMilestone(ctx, contractID, idx)
	if err != nil {
		return nil, err
	}

	if _, ok := models.NextMilestoneState(milestone.State, models.ActionApprove, models.RoleClient); ok {
		if err := s.milestones.Approve(ctx, contractID, idx); err != nil {
			if errors.Is(err, repository.ErrStateConflict) {
				return nil, apperror.New(apperror.ErrCodeConflict, "веха уже рассмотрена")
			}
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось принять веху")
		}
	} else if milestone.State != models.MilestoneStateApproved {
		return nil, apperror.New(apperror.ErrCodeConflict, "веха не ожидает рассмотрения")
	}
	// approved без paid: прошлый вызов принял веху, но не довёл выплату.
	// Продолжаем с того же места, ключ выплаты не меняется.

	txRef, err := s.ledger.Release(ctx, contractID, ledger.ReleaseKey(contractID, idx), milestone.Amount, contract.FreelancerID)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeSettlement, "выплата не подтверждена, повторите запрос")
	}

	if err := s.milestones.MarkPaid(ctx, contractID, idx, milestone.Amount, txRef); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			// Конкурентный повтор уже записал выплату.
			return s.milestones.Get(ctx, contractID, idx)
		}
		// Средства переведены, запись не обновлена: повтор вызова
		// безопасен, леджер вернёт тот же tx_ref.
		logger.Log.WithError(err).
			WithField("contract_id", contractID).
			WithField("idx", idx).
			Error("выплата выполнена, но веха не помечена оплаченной")
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "выплата выполнена, состояние вехи не обновлено, повторите запрос")
	}

	milestone.State = models.MilestoneStatePaid
	milestone.PaidTxRef = &txRef

	publishTo(s.events, EventMilestonePaid, milestone, contract.ClientID, contract.FreelancerID)
	return milestone, nil
}

// GetSubmission возвращает подтверждение вехи стороне сделки.
func (s *MilestoneService) GetSubmission(ctx context.Context, contractID uuid.UUID, idx int, callerID uuid.UUID) (*models.MilestoneSubmission, error) {
	contract, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !contract.IsParty(callerID) {
		return nil, apperror.ErrForbidden
	}

	submission, err := s.milestones.GetSubmission(ctx, contractID, idx)
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "подтверждение не найдено")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить подтверждение")
	}
	return submission, nil
}

func (s *MilestoneService) loadMilestone(ctx context.Context, contractID uuid.UUID, idx int) (*models.Milestone, error) {
	milestone, err := s.milestones.Get(ctx, contractID, idx)
	if err != nil {
		if errors.Is(err, repository.ErrMilestoneNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "веха не найдена")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить веху")
	}
	return milestone, nil
}

func (s *MilestoneService) loadContract(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить контракт")
	}
	return contract, nil
}
