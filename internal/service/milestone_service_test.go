package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-escrow/internal/ledger"
	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-escrow/internal/repository"
)

func activeContract(clientID, freelancerID uuid.UUID) *models.Contract {
	return &models.Contract{
		ID:           uuid.New(),
		ClientID:     clientID,
		FreelancerID: freelancerID,
		TotalAmount:  1000,
		LockedAmount: 1000,
		Status:       models.ContractStatusActive,
	}
}

func TestMilestoneService_SubmitProof_Success(t *testing.T) {
	milestones := new(mockMilestoneStore)
	contracts := new(mockContractStore)
	svc := NewMilestoneService(milestones, contracts, new(mockLedger), nil)
	ctx := context.Background()

	freelancerID := uuid.New()
	contract := activeContract(uuid.New(), freelancerID)

	submission := &models.MilestoneSubmission{ContractID: contract.ID, Idx: 0, ProofRef: "proof/1"}
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	milestones.On("Get", ctx, contract.ID, 0).Return(&models.Milestone{ContractID: contract.ID, Idx: 0, State: models.MilestoneStatePending}, nil)
	milestones.On("SubmitProof", ctx, contract.ID, 0, "proof/1", "готово").Return(submission, nil)

	got, err := svc.SubmitProof(ctx, contract.ID, 0, freelancerID, "proof/1", "готово")
	assert.NoError(t, err)
	assert.Equal(t, submission, got)
}

func TestMilestoneService_SubmitProof_NotFreelancer(t *testing.T) {
	milestones := new(mockMilestoneStore)
	contracts := new(mockContractStore)
	svc := NewMilestoneService(milestones, contracts, new(mockLedger), nil)
	ctx := context.Background()

	contract := activeContract(uuid.New(), uuid.New())
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.SubmitProof(ctx, contract.ID, 0, contract.ClientID, "proof/1", "")
	assert.True(t, apperror.IsForbidden(err))
}

func TestMilestoneService_SubmitProof_WrongState(t *testing.T) {
	milestones := new(mockMilestoneStore)
	contracts := new(mockContractStore)
	svc := NewMilestoneService(milestones, contracts, new(mockLedger), nil)
	ctx := context.Background()

	freelancerID := uuid.New()
	contract := activeContract(uuid.New(), freelancerID)
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	// Веха уже отправлена: повторная отправка без запроса доработки
	// отклоняется до обращения к хранилищу.
	milestones.On("Get", ctx, contract.ID, 0).Return(&models.Milestone{ContractID: contract.ID, Idx: 0, State: models.MilestoneStateSubmitted}, nil)

	_, err := svc.SubmitProof(ctx, contract.ID, 0, freelancerID, "proof/1", "")
	assert.True(t, apperror.IsConflict(err))
	milestones.AssertNotCalled(t, "SubmitProof", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMilestoneService_SubmitProof_AfterRevision(t *testing.T) {
	milestones := new(mockMilestoneStore)
	contracts := new(mockContractStore)
	svc := NewMilestoneService(milestones, contracts, new(mockLedger), nil)
	ctx := context.Background()

	freelancerID := uuid.New()
	contract := activeContract(uuid.New(), freelancerID)

	submission := &models.MilestoneSubmission{ContractID: contract.ID, Idx: 1, ProofRef: "proof/2"}
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	milestones.On("Get", ctx, contract.ID, 1).Return(&models.Milestone{ContractID: contract.ID, Idx: 1, State: models.MilestoneStateRevisionRequested}, nil)
	milestones.On("SubmitProof", ctx, contract.ID, 1, "proof/2", "").Return(submission, nil)

	got, err := svc.SubmitProof(ctx, contract.ID, 1, freelancerID, "proof/2", "")
	assert.NoError(t, err)
	assert.Equal(t, submission, got)
}

func TestMilestoneService_ApproveMilestone_Success(t *testing.T) {
	milestones := new(mockMilestoneStore)
	contracts := new(mockContractStore)
	lg := new(mockLedger)
	svc := NewMilestoneService(milestones, contracts, lg, nil)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	contract := activeContract(clientID, freelancerID)
	milestone := &models.Milestone{ContractID: contract.ID, Idx: 1, Amount: 400, State: models.MilestoneStateSubmitted}
	opKey := ledger.ReleaseKey(contract.ID, 1)

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	milestones.On("Get", ctx, contract.ID, 1).Return(milestone, nil)
	milestones.On("Approve", ctx, contract.ID, 1).Return(nil)
	lg.On("Release", ctx, contract.ID, opKey, 400.0, freelancerID).Return("tx-rel-1", nil)
	milestones.On("MarkPaid", ctx, contract.ID, 1, 400.0, "tx-rel-1").Return(nil)

	got, err := svc.ApproveMilestone(ctx, contract.ID, 1, clientID)
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatePaid, got.State)
	assert.Equal(t, "tx-rel-1", *got.PaidTxRef)
	lg.AssertNumberOfCalls(t, "Release", 1)
}

func TestMilestoneService_ApproveMilestone_AlreadyPaid(t *testing.T) {
	milestones := new(mockMilestoneStore)
	contracts := new(mockContractStore)
	lg := new(mockLedger)
	svc := NewMilestoneService(milestones, contracts, lg, nil)
	ctx := context.Background()

	clientID := uuid.New()
	contract := activeContract(clientID, uuid.New())
	milestone := &models.Milestone{ContractID: contract.ID, Idx: 0, Amount: 400, State: models.MilestoneStatePaid}

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	milestones.On("Get", ctx, contract.ID, 0).Return(milestone, nil)

	// Повторное одобрение оплаченной вехи не приводит ко второй выплате.
	_, err := svc.ApproveMilestone(ctx, contract.ID, 0, clientID)
	assert.True(t, apperror.IsConflict(err))
	lg.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMilestoneService_ApproveMilestone_RetryAfterPaymentFailure(t *testing.T) {
	milestones := new(mockMilestoneStore)
	contracts := new(mockContractStore)
	lg := new(mockLedger)
	svc := NewMilestoneService(milestones, contracts, lg, nil)
	ctx := context.Background()

	clientID := uuid.New()
	freelancerID := uuid.New()
	contract := activeContract(clientID, freelancerID)
	// Прошлый вызов принял веху, но выплата сорвалась.
	milestone := &models.Milestone{ContractID: contract.ID, Idx: 2, Amount: 250, State: models.MilestoneStateApproved}
	opKey := ledger.ReleaseKey(contract.ID, 2)

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	milestones.On("Get", ctx, contract.ID, 2).Return(milestone, nil)
	lg.On("Release", ctx, contract.ID, opKey, 250.0, freelancerID).Return("tx-rel-2", nil)
	milestones.On("MarkPaid", ctx, contract.ID, 2, 250.0, "tx-rel-2").Return(nil)

	got, err := svc.ApproveMilestone(ctx, contract.ID, 2, clientID)
	assert.NoError(t, err)
	assert.Equal(t, models.MilestoneStatePaid, got.State)
	// Повтор продолжает с выплаты, Approve не вызывается заново.
	milestones.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything, mock.Anything)
}

func TestMilestoneService_ApproveMilestone_ReleaseFails(t *testing.T) {
	milestones := new(mockMilestoneStore)
	contracts := new(mockContractStore)
	lg := new(mockLedger)
	svc := NewMilestoneService(milestones, contracts, lg, nil)
	ctx := context.Background()

	clientID := uuid.New()
	contract := activeContract(clientID, uuid.New())
	milestone := &models.Milestone{ContractID: contract.ID, Idx: 0, Amount: 400, State: models.MilestoneStateSubmitted}

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	milestones.On("Get", ctx, contract.ID, 0).Return(milestone, nil)
	milestones.On("Approve", ctx, contract.ID, 0).Return(nil)
	lg.On("Release", ctx, contract.ID, mock.Anything, 400.0, contract.FreelancerID).Return("", errors.New("ledger down"))

	_, err := svc.ApproveMilestone(ctx, contract.ID, 0, clientID)
	assert.True(t, apperror.IsSettlement(err))
	milestones.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMilestoneService_ApproveMilestone_MissingMilestone(t *testing.T) {
	milestones := new(mockMilestoneStore)
	contracts := new(mockContractStore)
	svc := NewMilestoneService(milestones, contracts, new(mockLedger), nil)
	ctx := context.Background()

	clientID := uuid.New()
	contract := activeContract(clientID, uuid.New())

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	milestones.On("Get", ctx, contract.ID, 7).Return(nil, repository.ErrMilestoneNotFound)

	_, err := svc.ApproveMilestone(ctx, contract.ID, 7, clientID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestMilestoneService_ApproveMilestone_DisputedContract(t *testing.T) {
	milestones := new(mockMilestoneStore)
	contracts := new(mockContractStore)
	lg := new(mockLedger)
	svc := NewMilestoneService(milestones, contracts, lg, nil)
	ctx := context.Background()

	clientID := uuid.New()
	contract := activeContract(clientID, uuid.New())
	contract.Status = models.ContractStatusDisputed

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	// Пока идёт спор, выплаты по вехам заморожены: резерв контракта
	// должен покрыть возможный REFUND при расчёте.
	_, err := svc.ApproveMilestone(ctx, contract.ID, 0, clientID)
	assert.True(t, apperror.IsConflict(err))
	lg.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	milestones.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything, mock.Anything)
}

func TestMilestoneService_RequestRevision_InactiveContract(t *testing.T) {
	milestones := new(mockMilestoneStore)
	contracts := new(mockContractStore)
	svc := NewMilestoneService(milestones, contracts, new(mockLedger), nil)
	ctx := context.Background()

	clientID := uuid.New()
	contract := activeContract(clientID, uuid.New())
	contract.Status = models.ContractStatusCompleted

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.RequestRevision(ctx, contract.ID, 0, clientID, "переделать")
	assert.True(t, apperror.IsConflict(err))
	milestones.AssertNotCalled(t, "RequestRevision", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMilestoneService_RequestRevision_NotSubmitted(t *testing.T) {
	milestones := new(mockMilestoneStore)
	contracts := new(mockContractStore)
	svc := NewMilestoneService(milestones, contracts, new(mockLedger), nil)
	ctx := context.Background()

	clientID := uuid.New()
	contract := activeContract(clientID, uuid.New())

	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)
	milestones.On("Get", ctx, contract.ID, 0).Return(&models.Milestone{ContractID: contract.ID, Idx: 0, State: models.MilestoneStatePending}, nil)

	_, err := svc.RequestRevision(ctx, contract.ID, 0, clientID, "переделать")
	assert.True(t, apperror.IsConflict(err))
	milestones.AssertNotCalled(t, "RequestRevision", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMilestoneService_RequestRevision_NotClient(t *testing.T) {
	milestones := new(mockMilestoneStore)
	contracts := new(mockContractStore)
	svc := NewMilestoneService(milestones, contracts, new(mockLedger), nil)
	ctx := context.Background()

	contract := activeContract(uuid.New(), uuid.New())
	contracts.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.RequestRevision(ctx, contract.ID, 0, contract.FreelancerID, "переделать")
	assert.True(t, apperror.IsForbidden(err))
}
