package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/ledger"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-escrow/internal/repository"
	"github.com/ignatzorin/freelance-escrow/internal/validation"
)

// ContractStore описывает зависимости ContractService от слоя хранилища.
type ContractStore interface {
	AcceptProposal(ctx context.Context, proposalID, clientID uuid.UUID) (*models.Contract, error)
	MarkFunded(ctx context.Context, contractID uuid.UUID, txRef string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error)
	SetSignature(ctx context.Context, contractID uuid.UUID, signature string) (time.Time, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error)
}

// ContractService превращает принятое предложение в профинансированный
// подписанный контракт.
type ContractService struct {
	contracts ContractStore
	ledger    ledger.Adapter
	events    EventPublisher
}

func NewContractService(contracts ContractStore, lg ledger.Adapter, events EventPublisher) *ContractService {
	return &ContractService{contracts: contracts, ledger: lg, events: events}
}

// AcceptProposal принимает предложение от имени клиента. Четыре записи
// (предложение, конкурирующие предложения, проект, контракт) меняются как
// единое целое; заморозка полной суммы запрашивается у леджера уже после
// коммита. Отказ заморозки не откатывает принятие: контракт остаётся в
// sub-статусе pending_funding и финансируется повторным вызовом
// RetryFunding с тем же идемпотентным ключом.
func (s *ContractService) AcceptProposal(ctx context.Context, proposalID, clientID uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.AcceptProposal(ctx, proposalID, clientID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProposalNotFound):
			return nil, apperror.ErrProposalNotFound
		case errors.Is(err, repository.ErrProjectNotFound):
			return nil, apperror.ErrProjectNotFound
		case errors.Is(err, repository.ErrNotProjectOwner):
			return nil, apperror.ErrForbidden
		case errors.Is(err, repository.ErrProjectNotOpen):
			return nil, apperror.New(apperror.ErrCodeConflict, "проект уже закрыт или назначен")
		case errors.Is(err, repository.ErrProposalNotPending):
			return nil, apperror.New(apperror.ErrCodeConflict, "предложение уже рассмотрено")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось принять предложение")
	}

	publishTo(s.events, EventContractCreated, contract, contract.ClientID, contract.FreelancerID)

	if err := s.fund(ctx, contract); err != nil {
		// Контракт уже создан, средства не заморожены: оставляем
		// pending_funding и отдаём контракт как есть, вызов повторяем.
		logger.Log.WithError(err).WithField("contract_id", contract.ID).
			Warn("заморозка средств не подтверждена, контракт ожидает финансирования")
	}

	return contract, nil
}

// RetryFunding повторяет заморозку средств контракта в pending_funding.
// Вызов леджера идемпотентен по контракту, повтор безопасен.
func (s *ContractService) RetryFunding(ctx context.Context, contractID, clientID uuid.UUID) (*models.Contract, error) {
	contract, err := s.getOwned(ctx, contractID, clientID)
	if err != nil {
		return nil, err
	}
	if contract.ClientID != clientID {
		return nil, apperror.ErrForbidden
	}
	if _, ok := models.NextContractStatus(contract.Status, models.ActionFund, models.RoleSystem); !ok {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт не ожидает финансирования")
	}

	if err := s.fund(ctx, contract); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeSettlement, "не удалось заморозить средства, повторите запрос")
	}

	return contract, nil
}

// fund запрашивает заморозку и помечает контракт активным.
func (s *ContractService) fund(ctx context.Context, contract *models.Contract) error {
	txRef, err := s.ledger.Lock(ctx, contract.ID, contract.TotalAmount, contract.ClientID)
	if err != nil {
		return err
	}

	if err := s.contracts.MarkFunded(ctx, contract.ID, txRef); err != nil {
		// Конкурентный повтор уже активировал контракт: заморозка одна,
		// двойного резервирования нет.
		if !errors.Is(err, repository.ErrStateConflict) {
			return err
		}
	}

	contract.Status = models.ContractStatusActive
	contract.LockedAmount = contract.TotalAmount
	contract.FundingTxRef = &txRef

	publishTo(s.events, EventContractFunded, contract, contract.ClientID, contract.FreelancerID)
	return nil
}

// SignContract записывает подпись фрилансера; после подписи контракт
// подлежит исполнению. Подписать можно ровно один раз и только
// назначенному фрилансеру.
func (s *ContractService) SignContract(ctx context.Context, contractID, freelancerID uuid.UUID, signature string) (*models.Contract, error) {
	if err := validation.ValidateNonEmpty("подпись", signature); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateLength("подпись", signature, 1, validation.MaxSignatureLength); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	contract, err := s.get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.FreelancerID != freelancerID {
		return nil, apperror.ErrForbidden
	}
	if contract.IsSigned() {
		return nil, apperror.New(apperror.ErrCodeConflict, "контракт уже подписан")
	}

	signedAt, err := s.contracts.SetSignature(ctx, contractID, signature)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadySigned) {
			return nil, apperror.New(apperror.ErrCodeConflict, "контракт уже подписан")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось подписать контракт")
	}

	contract.FreelancerSignature = &signature
	contract.SignedAt = &signedAt

	publishTo(s.events, EventContractSigned, contract, contract.ClientID, contract.FreelancerID)
	return contract, nil
}

// GetContract возвращает контракт стороне сделки.
func (s *ContractService) GetContract(ctx context.Context, contractID, callerID uuid.UUID) (*models.Contract, error) {
	return s.getOwned(ctx, contractID, callerID)
}

// ListMyContracts возвращает контракты пользователя.
func (s *ContractService) ListMyContracts(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.contracts.ListByUser(ctx, userID, limit, offset)
}

func (s *ContractService) get(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить контракт")
	}
	return contract, nil
}

func (s *ContractService) getOwned(ctx context.Context, contractID, callerID uuid.UUID) (*models.Contract, error) {
	contract, err := s.get(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !contract.IsParty(callerID) {
		return nil, apperror.ErrForbidden
	}
	return contract, nil
}
