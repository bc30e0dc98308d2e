package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-escrow/internal/models"
)

type mockContractStore struct {
	mock.Mock
}

func (m *mockContractStore) AcceptProposal(ctx context.Context, proposalID, clientID uuid.UUID) (*models.Contract, error) {
	args := m.Called(ctx, proposalID, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *mockContractStore) MarkFunded(ctx context.Context, contractID uuid.UUID, txRef string) error {
	args := m.Called(ctx, contractID, txRef)
	return args.Error(0)
}

func (m *mockContractStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contract), args.Error(1)
}

func (m *mockContractStore) SetSignature(ctx context.Context, contractID uuid.UUID, signature string) (time.Time, error) {
	args := m.Called(ctx, contractID, signature)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *mockContractStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Contract, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Contract), args.Error(1)
}

type mockMilestoneStore struct {
	mock.Mock
}

func (m *mockMilestoneStore) Get(ctx context.Context, contractID uuid.UUID, idx int) (*models.Milestone, error) {
	args := m.Called(ctx, contractID, idx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Milestone), args.Error(1)
}

func (m *mockMilestoneStore) SubmitProof(ctx context.Context, contractID uuid.UUID, idx int, proofRef, description string) (*models.MilestoneSubmission, error) {
	args := m.Called(ctx, contractID, idx, proofRef, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MilestoneSubmission), args.Error(1)
}

func (m *mockMilestoneStore) RequestRevision(ctx context.Context, contractID uuid.UUID, idx int, feedback string) (*models.MilestoneSubmission, error) {
	args := m.Called(ctx, contractID, idx, feedback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MilestoneSubmission), args.Error(1)
}

func (m *mockMilestoneStore) Approve(ctx context.Context, contractID uuid.UUID, idx int) error {
	args := m.Called(ctx, contractID, idx)
	return args.Error(0)
}

func (m *mockMilestoneStore) MarkPaid(ctx context.Context, contractID uuid.UUID, idx int, amount float64, txRef string) error {
	args := m.Called(ctx, contractID, idx, amount, txRef)
	return args.Error(0)
}

func (m *mockMilestoneStore) GetSubmission(ctx context.Context, contractID uuid.UUID, idx int) (*models.MilestoneSubmission, error) {
	args := m.Called(ctx, contractID, idx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MilestoneSubmission), args.Error(1)
}

type mockDisputeStore struct {
	mock.Mock
}

func (m *mockDisputeStore) Create(ctx context.Context, d *models.Dispute) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *mockDisputeStore) GetByID(ctx context.Context, id string) (*models.Dispute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dispute), args.Error(1)
}

func (m *mockDisputeStore) UpdateStatus(ctx context.Context, id, from, to string) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *mockDisputeStore) Assign(ctx context.Context, id string, arbitratorID uuid.UUID) error {
	args := m.Called(ctx, id, arbitratorID)
	return args.Error(0)
}

func (m *mockDisputeStore) Resolve(ctx context.Context, d *models.Dispute, outcome, decision, txRef, contractStatus string) error {
	args := m.Called(ctx, d, outcome, decision, txRef, contractStatus)
	if args.Error(0) == nil {
		now := time.Now()
		d.Status = models.DisputeStatusResolved
		d.Outcome = &outcome
		d.Decision = &decision
		d.SettlementTxRef = &txRef
		d.ResolvedAt = &now
	}
	return args.Error(0)
}

func (m *mockDisputeStore) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Dispute, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Dispute), args.Error(1)
}

type mockArbitratorDirectory struct {
	mock.Mock
}

func (m *mockArbitratorDirectory) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Arbitrator, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Arbitrator), args.Error(1)
}

func (m *mockArbitratorDirectory) FindAvailable(ctx context.Context, staleAfter time.Time) (*models.Arbitrator, error) {
	args := m.Called(ctx, staleAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Arbitrator), args.Error(1)
}

func (m *mockArbitratorDirectory) FindOnDuty(ctx context.Context, now, staleAfter time.Time, domain string) (*models.Arbitrator, error) {
	args := m.Called(ctx, now, staleAfter, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Arbitrator), args.Error(1)
}

func (m *mockArbitratorDirectory) IncrementCompleted(ctx context.Context, userID uuid.UUID, reward float64) error {
	args := m.Called(ctx, userID, reward)
	return args.Error(0)
}

type mockArbitratorStore struct {
	mock.Mock
}

func (m *mockArbitratorStore) Create(ctx context.Context, a *models.Arbitrator) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *mockArbitratorStore) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Arbitrator, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Arbitrator), args.Error(1)
}

func (m *mockArbitratorStore) SetPresence(ctx context.Context, userID uuid.UUID, presence string) error {
	args := m.Called(ctx, userID, presence)
	return args.Error(0)
}

func (m *mockArbitratorStore) BookGig(ctx context.Context, arbitratorID uuid.UUID, start, end time.Time) (*models.ArbitratorGig, error) {
	args := m.Called(ctx, arbitratorID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ArbitratorGig), args.Error(1)
}

func (m *mockArbitratorStore) CancelGig(ctx context.Context, gigID uuid.UUID) (*models.ArbitratorGig, error) {
	args := m.Called(ctx, gigID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ArbitratorGig), args.Error(1)
}

func (m *mockArbitratorStore) GetGig(ctx context.Context, gigID uuid.UUID) (*models.ArbitratorGig, error) {
	args := m.Called(ctx, gigID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ArbitratorGig), args.Error(1)
}

func (m *mockArbitratorStore) ListGigs(ctx context.Context, arbitratorID uuid.UUID, limit, offset int) ([]models.ArbitratorGig, error) {
	args := m.Called(ctx, arbitratorID, limit, offset)
	return args.Get(0).([]models.ArbitratorGig), args.Error(1)
}

type mockProjectGetter struct {
	mock.Mock
}

func (m *mockProjectGetter) GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Lock(ctx context.Context, contractID uuid.UUID, amount float64, payerID uuid.UUID) (string, error) {
	args := m.Called(ctx, contractID, amount, payerID)
	return args.String(0), args.Error(1)
}

func (m *mockLedger) Release(ctx context.Context, contractID uuid.UUID, opKey string, amount float64, payeeID uuid.UUID) (string, error) {
	args := m.Called(ctx, contractID, opKey, amount, payeeID)
	return args.String(0), args.Error(1)
}

func (m *mockLedger) Refund(ctx context.Context, contractID uuid.UUID, opKey string, amount float64, payeeID uuid.UUID) (string, error) {
	args := m.Called(ctx, contractID, opKey, amount, payeeID)
	return args.String(0), args.Error(1)
}

func (m *mockLedger) DebitPenalty(ctx context.Context, userID uuid.UUID, opKey string, amount float64) (string, error) {
	args := m.Called(ctx, userID, opKey, amount)
	return args.String(0), args.Error(1)
}

func (m *mockLedger) CreditReward(ctx context.Context, userID uuid.UUID, opKey string, amount float64) (string, error) {
	args := m.Called(ctx, userID, opKey, amount)
	return args.String(0), args.Error(1)
}

func (m *mockLedger) BalanceOf(ctx context.Context, userID uuid.UUID) (float64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(float64), args.Error(1)
}

type mockUserDirectory struct {
	mock.Mock
}

func (m *mockUserDirectory) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type mockProjectStore struct {
	mock.Mock
}

func (m *mockProjectStore) CreateProject(ctx context.Context, p *models.Project) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProjectStore) GetProjectByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *mockProjectStore) CreateProposal(ctx context.Context, p *models.Proposal) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockProjectStore) GetProposalByID(ctx context.Context, id uuid.UUID) (*models.Proposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Proposal), args.Error(1)
}

func (m *mockProjectStore) ListProposalsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Proposal, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Proposal), args.Error(1)
}
