package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-escrow/internal/repository"
)

func newPendingContract(clientID, freelancerID uuid.UUID) *models.Contract {
	return &models.Contract{
		ID:           uuid.New(),
		ProjectID:    uuid.New(),
		ClientID:     clientID,
		FreelancerID: freelancerID,
		TotalAmount:  1500,
		Status:       models.ContractStatusPendingFunding,
	}
}

func TestContractService_AcceptProposal_Success(t *testing.T) {
	store := new(mockContractStore)
	lg := new(mockLedger)
	svc := NewContractService(store, lg, nil)
	ctx := context.Background()

	clientID := uuid.New()
	proposalID := uuid.New()
	contract := newPendingContract(clientID, uuid.New())

	store.On("AcceptProposal", ctx, proposalID, clientID).Return(contract, nil)
	lg.On("Lock", ctx, contract.ID, 1500.0, clientID).Return("tx-lock-1", nil)
	store.On("MarkFunded", ctx, contract.ID, "tx-lock-1").Return(nil)

	got, err := svc.AcceptProposal(ctx, proposalID, clientID)
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusActive, got.Status)
	assert.Equal(t, 1500.0, got.LockedAmount)
	assert.NotNil(t, got.FundingTxRef)
	store.AssertExpectations(t)
	lg.AssertExpectations(t)
}

func TestContractService_AcceptProposal_LockFails(t *testing.T) {
	store := new(mockContractStore)
	lg := new(mockLedger)
	svc := NewContractService(store, lg, nil)
	ctx := context.Background()

	clientID := uuid.New()
	proposalID := uuid.New()
	contract := newPendingContract(clientID, uuid.New())

	store.On("AcceptProposal", ctx, proposalID, clientID).Return(contract, nil)
	lg.On("Lock", ctx, contract.ID, 1500.0, clientID).Return("", errors.New("ledger down"))

	// Принятие не откатывается: контракт остаётся в ожидании финансирования.
	got, err := svc.AcceptProposal(ctx, proposalID, clientID)
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusPendingFunding, got.Status)
	assert.Equal(t, 0.0, got.LockedAmount)
	store.AssertNotCalled(t, "MarkFunded", mock.Anything, mock.Anything, mock.Anything)
}

func TestContractService_AcceptProposal_NotOwner(t *testing.T) {
	store := new(mockContractStore)
	svc := NewContractService(store, new(mockLedger), nil)
	ctx := context.Background()

	proposalID := uuid.New()
	clientID := uuid.New()
	store.On("AcceptProposal", ctx, proposalID, clientID).Return(nil, repository.ErrNotProjectOwner)

	_, err := svc.AcceptProposal(ctx, proposalID, clientID)
	assert.True(t, apperror.IsForbidden(err))
}

func TestContractService_AcceptProposal_AlreadyAccepted(t *testing.T) {
	store := new(mockContractStore)
	svc := NewContractService(store, new(mockLedger), nil)
	ctx := context.Background()

	proposalID := uuid.New()
	clientID := uuid.New()
	store.On("AcceptProposal", ctx, proposalID, clientID).Return(nil, repository.ErrProposalNotPending)

	_, err := svc.AcceptProposal(ctx, proposalID, clientID)
	assert.True(t, apperror.IsConflict(err))
}

func TestContractService_RetryFunding_Success(t *testing.T) {
	store := new(mockContractStore)
	lg := new(mockLedger)
	svc := NewContractService(store, lg, nil)
	ctx := context.Background()

	clientID := uuid.New()
	contract := newPendingContract(clientID, uuid.New())

	store.On("GetByID", ctx, contract.ID).Return(contract, nil)
	lg.On("Lock", ctx, contract.ID, 1500.0, clientID).Return("tx-lock-2", nil)
	store.On("MarkFunded", ctx, contract.ID, "tx-lock-2").Return(nil)

	got, err := svc.RetryFunding(ctx, contract.ID, clientID)
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusActive, got.Status)
}

func TestContractService_RetryFunding_ConcurrentActivation(t *testing.T) {
	store := new(mockContractStore)
	lg := new(mockLedger)
	svc := NewContractService(store, lg, nil)
	ctx := context.Background()

	clientID := uuid.New()
	contract := newPendingContract(clientID, uuid.New())

	store.On("GetByID", ctx, contract.ID).Return(contract, nil)
	lg.On("Lock", ctx, contract.ID, 1500.0, clientID).Return("tx-lock-3", nil)
	// Конкурентный повтор уже активировал контракт.
	store.On("MarkFunded", ctx, contract.ID, "tx-lock-3").Return(repository.ErrStateConflict)

	got, err := svc.RetryFunding(ctx, contract.ID, clientID)
	assert.NoError(t, err)
	assert.Equal(t, models.ContractStatusActive, got.Status)
}

func TestContractService_RetryFunding_NotPending(t *testing.T) {
	store := new(mockContractStore)
	svc := NewContractService(store, new(mockLedger), nil)
	ctx := context.Background()

	clientID := uuid.New()
	contract := newPendingContract(clientID, uuid.New())
	contract.Status = models.ContractStatusActive

	store.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.RetryFunding(ctx, contract.ID, clientID)
	assert.True(t, apperror.IsConflict(err))
}

func TestContractService_SignContract_Success(t *testing.T) {
	store := new(mockContractStore)
	svc := NewContractService(store, new(mockLedger), nil)
	ctx := context.Background()

	freelancerID := uuid.New()
	contract := newPendingContract(uuid.New(), freelancerID)
	contract.Status = models.ContractStatusActive
	signedAt := time.Now()

	store.On("GetByID", ctx, contract.ID).Return(contract, nil)
	store.On("SetSignature", ctx, contract.ID, "sig-data").Return(signedAt, nil)

	got, err := svc.SignContract(ctx, contract.ID, freelancerID, "sig-data")
	assert.NoError(t, err)
	assert.True(t, got.IsSigned())
	assert.Equal(t, signedAt, *got.SignedAt)
}

func TestContractService_SignContract_WrongFreelancer(t *testing.T) {
	store := new(mockContractStore)
	svc := NewContractService(store, new(mockLedger), nil)
	ctx := context.Background()

	contract := newPendingContract(uuid.New(), uuid.New())
	store.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.SignContract(ctx, contract.ID, uuid.New(), "sig-data")
	assert.True(t, apperror.IsForbidden(err))
}

func TestContractService_SignContract_Twice(t *testing.T) {
	store := new(mockContractStore)
	svc := NewContractService(store, new(mockLedger), nil)
	ctx := context.Background()

	freelancerID := uuid.New()
	contract := newPendingContract(uuid.New(), freelancerID)
	sig := "first"
	contract.FreelancerSignature = &sig

	store.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.SignContract(ctx, contract.ID, freelancerID, "second")
	assert.True(t, apperror.IsConflict(err))
	store.AssertNotCalled(t, "SetSignature", mock.Anything, mock.Anything, mock.Anything)
}

func TestContractService_GetContract_PartyOnly(t *testing.T) {
	store := new(mockContractStore)
	svc := NewContractService(store, new(mockLedger), nil)
	ctx := context.Background()

	contract := newPendingContract(uuid.New(), uuid.New())
	store.On("GetByID", ctx, contract.ID).Return(contract, nil)

	_, err := svc.GetContract(ctx, contract.ID, uuid.New())
	assert.True(t, apperror.IsForbidden(err))

	got, err := svc.GetContract(ctx, contract.ID, contract.ClientID)
	assert.NoError(t, err)
	assert.Equal(t, contract, got)
}
