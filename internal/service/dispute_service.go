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

// DisputeStore описывает зависимости DisputeService от слоя хранилища.
type DisputeStore interface {
	Create(ctx context.Context, d *models.Dispute) error
	GetByID(ctx context.Context, id string) (*models.Dispute, error)
	UpdateStatus(ctx context.Context, id, from, to string) error
	Assign(ctx context.Context, id string, arbitratorID uuid.UUID) error
	Resolve(ctx context.Context, d *models.Dispute, outcome, decision, txRef, contractStatus string) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error)
}

// ArbitratorDirectory - срез каталога арбитров, нужный подбору.
type ArbitratorDirectory interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Arbitrator, error)
	FindAvailable(ctx context.Context, staleAfter time.Time) (*models.Arbitrator, error)
	FindOnDuty(ctx context.Context, now, staleAfter time.Time, domain string) (*models.Arbitrator, error)
	IncrementCompleted(ctx context.Context, userID uuid.UUID, reward float64) error
}

// ProjectGetter отдаёт проект для определения домена спора.
type ProjectGetter interface {
	GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// DisputeConfig - параметры арбитража, снятые с конфигурации при старте.
type DisputeConfig struct {
	DefaultArbitratorID *uuid.UUID
	StrictMatching      bool
	PresenceTTL         time.Duration
	ArbitrationReward   float64
}

// DisputeService открывает споры, подбирает арбитра и проводит
// урегулирование через леджер.
type DisputeService struct {
	disputes    DisputeStore
	contracts   ContractStore
	arbitrators ArbitratorDirectory
	projects    ProjectGetter
	ledger      ledger.Adapter
	events      EventPublisher
	cfg         DisputeConfig
	now         func() time.Time
}

func NewDisputeService(disputes DisputeStore, contracts ContractStore, arbitrators ArbitratorDirectory, projects ProjectGetter, lg ledger.Adapter, events EventPublisher, cfg DisputeConfig) *DisputeService {
	return &DisputeService{
		disputes:    disputes,
		contracts:   contracts,
		arbitrators: arbitrators,
		projects:    projects,
		ledger:      lg,
		events:      events,
		cfg:         cfg,
		now:         time.Now,
	}
}

// RaiseDispute открывает спор по активному контракту от имени стороны.
// Арбитр подбирается в момент открытия: сначала любой арбитр со свежим
// статусом online, затем настроенный резервный. Если никто не найден,
// спор не создаётся вовсе и вызов завершается 503, повторить можно позже.
// В строгом режиме требуется действующее бронирование с совпадающей
// специализацией, а спор без арбитра создаётся OPEN без назначения.
func (s *DisputeService) RaiseDispute(ctx context.Context, contractID, raiserID uuid.UUID, reason string, milestoneIdx *int) (*models.Dispute, error) {
	if err := validation.ValidateNonEmpty("причина спора", reason); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	contract, err := s.loadContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	role, ok := contract.PartyRole(raiserID)
	if !ok {
		return nil, apperror.ErrForbidden
	}
	partyRole := models.RoleClient
	if role == models.DisputeRoleFreelancer {
		partyRole = models.RoleFreelancer
	}
	if _, ok := models.NextContractStatus(contract.Status, models.ActionDispute, partyRole); !ok {
		return nil, apperror.New(apperror.ErrCodeConflict, "спор открывается только по активному контракту")
	}

	amount := contract.LockedAmount
	if milestoneIdx != nil {
		found := false
		for _, m := range contract.Milestones {
			if m.Idx == *milestoneIdx {
				if m.State == models.MilestoneStatePaid {
					return nil, apperror.New(apperror.ErrCodeConflict, "веха уже оплачена, спор по ней невозможен")
				}
				amount = m.Amount
				found = true
				break
			}
		}
		if !found {
			return nil, apperror.New(apperror.ErrCodeNotFound, "веха не найдена")
		}
	}

	domain := ""
	if project, err := s.projects.GetProjectByID(ctx, contract.ProjectID); err == nil {
		domain = project.Domain
	}

	now := s.now()
	dispute := &models.Dispute{
		ID:           models.NewDisputeID(now),
		ContractID:   contractID,
		RaisedBy:     raiserID,
		RaiserRole:   role,
		Reason:       reason,
		Domain:       domain,
		Amount:       amount,
		MilestoneIdx: milestoneIdx,
		Status:       models.DisputeStatusOpen,
	}

	arbitratorID, err := s.matchArbitrator(ctx, now, domain)
	if err != nil {
		return nil, err
	}
	if arbitratorID != nil {
		dispute.AssignedArbitratorID = arbitratorID
		dispute.Status = models.DisputeStatusUnderReview
	}

	if err := s.disputes.Create(ctx, dispute); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, apperror.New(apperror.ErrCodeConflict, "по контракту уже идёт спор")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось открыть спор")
	}

	recipients := []uuid.UUID{contract.ClientID, contract.FreelancerID}
	if dispute.AssignedArbitratorID != nil {
		recipients = append(recipients, *dispute.AssignedArbitratorID)
	}
	publishTo(s.events, EventDisputeRaised, dispute, recipients...)

	return dispute, nil
}

// matchArbitrator возвращает арбитра для нового спора либо nil, когда
// строгий режим допускает спор без назначения.
func (s *DisputeService) matchArbitrator(ctx context.Context, now time.Time, domain string) (*uuid.UUID, error) {
	staleAfter := now.Add(-s.cfg.PresenceTTL)

	if s.cfg.StrictMatching {
		arb, err := s.arbitrators.FindOnDuty(ctx, now, staleAfter, domain)
		if err != nil {
			if errors.Is(err, repository.ErrArbitratorNotFound) {
				return nil, nil
			}
			return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось подобрать арбитра")
		}
		if !arb.IsPresenceFresh(now, s.cfg.PresenceTTL) || !arb.HasSpecialization(domain) {
			return nil, nil
		}
		return &arb.UserID, nil
	}

	arb, err := s.arbitrators.FindAvailable(ctx, staleAfter)
	if err == nil {
		if arb.IsPresenceFresh(now, s.cfg.PresenceTTL) {
			return &arb.UserID, nil
		}
	} else if !errors.Is(err, repository.ErrArbitratorNotFound) {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось подобрать арбитра")
	}

	if s.cfg.DefaultArbitratorID != nil {
		return s.cfg.DefaultArbitratorID, nil
	}
	return nil, apperror.ErrNoArbitrator
}

// RequestEvidence переводит спор в ожидание доказательств по запросу
// назначенного арбитра.
func (s *DisputeService) RequestEvidence(ctx context.Context, disputeID string, arbitratorID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.loadAssigned(ctx, disputeID, arbitratorID)
	if err != nil {
		return nil, err
	}

	next, ok := models.NextDisputeStatus(dispute.Status, models.ActionRequestEvidence, models.RoleArbitrator)
	if !ok {
		return nil, apperror.New(apperror.ErrCodeConflict, "спор не допускает запрос доказательств в текущем статусе")
	}
	if err := s.updateStatus(ctx, dispute, next); err != nil {
		return nil, err
	}
	return dispute, nil
}

// SubmitEvidence возвращает спор на рассмотрение после предоставления
// доказательств стороной. Сами материалы передаются ссылкой и хранятся
// вне ядра.
func (s *DisputeService) SubmitEvidence(ctx context.Context, disputeID string, callerID uuid.UUID, evidenceRef string) (*models.Dispute, error) {
	if err := validation.ValidateNonEmpty("ссылка на доказательства", evidenceRef); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}

	dispute, err := s.load(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	contract, err := s.loadContract(ctx, dispute.ContractID)
	if err != nil {
		return nil, err
	}
	role, ok := contract.PartyRole(callerID)
	if !ok {
		return nil, apperror.ErrForbidden
	}

	partyRole := models.RoleClient
	if role == models.DisputeRoleFreelancer {
		partyRole = models.RoleFreelancer
	}
	next, ok := models.NextDisputeStatus(dispute.Status, models.ActionSubmitEvidence, partyRole)
	if !ok {
		return nil, apperror.New(apperror.ErrCodeConflict, "спор не ожидает доказательств")
	}
	if err := s.updateStatus(ctx, dispute, next); err != nil {
		return nil, err
	}

	logger.Log.WithField("dispute_id", disputeID).
		WithField("evidence_ref", evidenceRef).
		Info("по спору предоставлены доказательства")
	return dispute, nil
}

// Escalate помечает спор переданным на пересмотр. Обработка эскалаций
// лежит вне ядра, статус терминален для назначенного арбитра.
func (s *DisputeService) Escalate(ctx context.Context, disputeID string, arbitratorID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.loadAssigned(ctx, disputeID, arbitratorID)
	if err != nil {
		return nil, err
	}

	next, ok := models.NextDisputeStatus(dispute.Status, models.ActionEscalate, models.RoleArbitrator)
	if !ok {
		return nil, apperror.New(apperror.ErrCodeConflict, "спор нельзя эскалировать в текущем статусе")
	}
	if err := s.updateStatus(ctx, dispute, next); err != nil {
		return nil, err
	}
	return dispute, nil
}

// ResolveDispute выносит решение по спору. RELEASE переводит спорную
// сумму фрилансеру и завершает контракт, REFUND возвращает её клиенту и
// отменяет контракт. Расчёт в леджере идемпотентен по спору и
// подтверждается до записи решения: при сбое записи повтор вызова не
// создаёт второй перевод. Счётчик арбитра увеличивается строго после
// подтверждённого урегулирования.
func (s *DisputeService) ResolveDispute(ctx context.Context, disputeID string, arbitratorID uuid.UUID, decision string) (*models.Dispute, error) {
	if _, ok := models.ValidDisputeDecisions[decision]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "решение должно быть RELEASE или REFUND")
	}

	dispute, err := s.loadAssigned(ctx, disputeID, arbitratorID)
	if err != nil {
		return nil, err
	}
	if _, ok := models.NextDisputeStatus(dispute.Status, models.ActionResolve, models.RoleArbitrator); !ok {
		if dispute.IsResolved() {
			return nil, apperror.New(apperror.ErrCodeConflict, "спор уже разрешён")
		}
		return nil, apperror.New(apperror.ErrCodeConflict, "решение выносится только по спору на рассмотрении")
	}

	contract, err := s.loadContract(ctx, dispute.ContractID)
	if err != nil {
		return nil, err
	}

	var (
		outcome        string
		contractStatus string
		txRef          string
	)
	opKey := ledger.SettlementKey(dispute.ID)
	switch decision {
	case models.DisputeDecisionRelease:
		outcome = models.DisputeOutcomeFreelancer
		contractStatus = models.ContractStatusCompleted
		txRef, err = s.ledger.Release(ctx, dispute.ContractID, opKey, dispute.Amount, contract.FreelancerID)
	case models.DisputeDecisionRefund:
		outcome = models.DisputeOutcomeClient
		contractStatus = models.ContractStatusCancelled
		txRef, err = s.ledger.Refund(ctx, dispute.ContractID, opKey, dispute.Amount, contract.ClientID)
	}
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeSettlement, "расчёт по спору не подтверждён, повторите запрос")
	}

	if err := s.disputes.Resolve(ctx, dispute, outcome, decision, txRef, contractStatus); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, apperror.New(apperror.ErrCodeConflict, "спор уже разрешён")
		}
		logger.Log.WithError(err).WithField("dispute_id", disputeID).
			Error("расчёт выполнен, но решение не записано")
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "расчёт выполнен, решение не записано, повторите запрос")
	}

	s.rewardArbitrator(ctx, dispute, arbitratorID)

	publishTo(s.events, EventDisputeResolved, dispute, contract.ClientID, contract.FreelancerID, arbitratorID)
	return dispute, nil
}

// rewardArbitrator начисляет вознаграждение и инкрементирует счётчик
// завершённых споров. Спор уже разрешён, поэтому ошибки здесь логируются,
// а не возвращаются вызывающему.
func (s *DisputeService) rewardArbitrator(ctx context.Context, dispute *models.Dispute, arbitratorID uuid.UUID) {
	if err := s.arbitrators.IncrementCompleted(ctx, arbitratorID, s.cfg.ArbitrationReward); err != nil {
		logger.Log.WithError(err).WithField("dispute_id", dispute.ID).
			Error("не удалось обновить статистику арбитра")
	}
	if s.cfg.ArbitrationReward <= 0 {
		return
	}
	if _, err := s.ledger.CreditReward(ctx, arbitratorID, ledger.RewardKey(dispute.ID), s.cfg.ArbitrationReward); err != nil {
		logger.Log.WithError(err).WithField("dispute_id", dispute.ID).
			Error("не удалось начислить вознаграждение арбитру")
	}
}

// GetDispute возвращает спор стороне контракта или назначенному арбитру.
func (s *DisputeService) GetDispute(ctx context.Context, disputeID string, callerID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.load(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.AssignedArbitratorID != nil && *dispute.AssignedArbitratorID == callerID {
		return dispute, nil
	}
	contract, err := s.loadContract(ctx, dispute.ContractID)
	if err != nil {
		return nil, err
	}
	if !contract.IsParty(callerID) {
		return nil, apperror.ErrForbidden
	}
	return dispute, nil
}

// ListMyDisputes возвращает споры, в которых пользователь участвует как
// сторона или арбитр.
func (s *DisputeService) ListMyDisputes(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.disputes.ListByUser(ctx, userID, limit, offset)
}

func (s *DisputeService) load(ctx context.Context, disputeID string) (*models.Dispute, error) {
	dispute, err := s.disputes.GetByID(ctx, disputeID)
	if err != nil {
		if errors.Is(err, repository.ErrDisputeNotFound) {
			return nil, apperror.ErrDisputeNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить спор")
	}
	return dispute, nil
}

func (s *DisputeService) loadAssigned(ctx context.Context, disputeID string, arbitratorID uuid.UUID) (*models.Dispute, error) {
	dispute, err := s.load(ctx, disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.AssignedArbitratorID == nil || *dispute.AssignedArbitratorID != arbitratorID {
		return nil, apperror.ErrForbidden
	}
	return dispute, nil
}

func (s *DisputeService) loadContract(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, repository.ErrContractNotFound) {
			return nil, apperror.ErrContractNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить контракт")
	}
	return contract, nil
}

func (s *DisputeService) updateStatus(ctx context.Context, dispute *models.Dispute, next string) error {
	if err := s.disputes.UpdateStatus(ctx, dispute.ID, dispute.Status, next); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return apperror.New(apperror.ErrCodeConflict, "статус спора уже изменён")
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить статус спора")
	}
	dispute.Status = next
	return nil
}
