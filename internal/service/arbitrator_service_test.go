package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/freelance-escrow/internal/ledger"
	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-escrow/internal/repository"
)

func newArbitratorService(store *mockArbitratorStore, users *mockUserDirectory, lg *mockLedger) *ArbitratorService {
	svc := NewArbitratorService(store, users, lg, nil, ArbitratorConfig{MinStake: 1000, GigCancelPenalty: 50})
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestArbitratorService_Apply_Success(t *testing.T) {
	store := new(mockArbitratorStore)
	users := new(mockUserDirectory)
	svc := newArbitratorService(store, users, new(mockLedger))
	ctx := context.Background()
	userID := uuid.New()

	users.On("GetByID", ctx, userID).Return(&models.User{ID: userID, IsVerified: true}, nil)
	store.On("Create", ctx, mock.MatchedBy(func(a *models.Arbitrator) bool {
		return a.UserID == userID && a.Presence == models.PresenceOffline && a.Stake == 1500 && a.Verified
	})).Return(nil)

	arb, err := svc.Apply(ctx, userID, []string{"backend", "design"}, 1500)
	assert.NoError(t, err)
	assert.Len(t, arb.Specializations, 2)
}

func TestArbitratorService_Apply_UnverifiedUser(t *testing.T) {
	store := new(mockArbitratorStore)
	users := new(mockUserDirectory)
	svc := newArbitratorService(store, users, new(mockLedger))
	ctx := context.Background()
	userID := uuid.New()

	users.On("GetByID", ctx, userID).Return(&models.User{ID: userID, IsVerified: false}, nil)
	store.On("Create", ctx, mock.Anything).Return(nil)

	// Заявка принимается, но статус верификации переносится из учётки.
	arb, err := svc.Apply(ctx, userID, []string{"backend"}, 1500)
	assert.NoError(t, err)
	assert.False(t, arb.Verified)
}

func TestArbitratorService_Apply_Validation(t *testing.T) {
	svc := newArbitratorService(new(mockArbitratorStore), new(mockUserDirectory), new(mockLedger))
	ctx := context.Background()

	_, err := svc.Apply(ctx, uuid.New(), nil, 1500)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Apply(ctx, uuid.New(), []string{"a", "b", "c", "d", "e", "f"}, 1500)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Apply(ctx, uuid.New(), []string{"Bad Domain!"}, 1500)
	assert.True(t, apperror.IsValidation(err))

	_, err = svc.Apply(ctx, uuid.New(), []string{"backend"}, 500)
	assert.True(t, apperror.IsValidation(err))
}

func TestArbitratorService_Apply_Twice(t *testing.T) {
	store := new(mockArbitratorStore)
	users := new(mockUserDirectory)
	svc := newArbitratorService(store, users, new(mockLedger))
	ctx := context.Background()

	users.On("GetByID", ctx, mock.Anything).Return(&models.User{IsVerified: true}, nil)
	store.On("Create", ctx, mock.Anything).Return(repository.ErrArbitratorExists)

	_, err := svc.Apply(ctx, uuid.New(), []string{"backend"}, 1500)
	assert.True(t, apperror.IsConflict(err))
}

func TestArbitratorService_BookGig_Overlap(t *testing.T) {
	store := new(mockArbitratorStore)
	svc := newArbitratorService(store, new(mockUserDirectory), new(mockLedger))
	ctx := context.Background()
	userID := uuid.New()

	start := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	store.On("GetByUser", ctx, userID).Return(&models.Arbitrator{UserID: userID, Verified: true, Stake: 1500}, nil)
	store.On("BookGig", ctx, userID, start, end).Return(nil, repository.ErrGigOverlap)

	_, err := svc.BookGig(ctx, userID, start, end)
	assert.True(t, apperror.IsConflict(err))
}

func TestArbitratorService_BookGig_BelowThreshold(t *testing.T) {
	store := new(mockArbitratorStore)
	svc := newArbitratorService(store, new(mockUserDirectory), new(mockLedger))
	ctx := context.Background()

	start := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	// Неподтверждённая личность.
	unverified := uuid.New()
	store.On("GetByUser", ctx, unverified).Return(&models.Arbitrator{UserID: unverified, Verified: false, Stake: 1500}, nil)
	_, err := svc.BookGig(ctx, unverified, start, end)
	assert.True(t, apperror.IsForbidden(err))

	// Стейк ниже минимума.
	understaked := uuid.New()
	store.On("GetByUser", ctx, understaked).Return(&models.Arbitrator{UserID: understaked, Verified: true, Stake: 500}, nil)
	_, err = svc.BookGig(ctx, understaked, start, end)
	assert.True(t, apperror.IsForbidden(err))

	store.AssertNotCalled(t, "BookGig", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestArbitratorService_BookGig_InvalidWindow(t *testing.T) {
	svc := newArbitratorService(new(mockArbitratorStore), new(mockUserDirectory), new(mockLedger))
	ctx := context.Background()

	start := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)

	// Окно короче минимума.
	_, err := svc.BookGig(ctx, uuid.New(), start, start.Add(5*time.Minute))
	assert.True(t, apperror.IsValidation(err))

	// Конец раньше начала.
	_, err = svc.BookGig(ctx, uuid.New(), start, start.Add(-time.Hour))
	assert.True(t, apperror.IsValidation(err))
}

func TestArbitratorService_CancelGig_FlatPenalty(t *testing.T) {
	store := new(mockArbitratorStore)
	lg := new(mockLedger)
	svc := newArbitratorService(store, new(mockUserDirectory), lg)
	ctx := context.Background()
	userID := uuid.New()

	gig := &models.ArbitratorGig{ID: uuid.New(), ArbitratorID: userID, Status: models.GigStatusBooked}
	cancelled := &models.ArbitratorGig{ID: gig.ID, ArbitratorID: userID, Status: models.GigStatusCancelled}

	store.On("GetGig", ctx, gig.ID).Return(gig, nil)
	// Штраф фиксированный и не зависит от срока до начала окна.
	lg.On("DebitPenalty", ctx, userID, ledger.PenaltyKey(gig.ID), 50.0).Return("tx-pen-1", nil)
	store.On("CancelGig", ctx, gig.ID).Return(cancelled, nil)

	got, err := svc.CancelGig(ctx, userID, gig.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.GigStatusCancelled, got.Status)
	lg.AssertNumberOfCalls(t, "DebitPenalty", 1)
}

func TestArbitratorService_CancelGig_AlreadyCancelled(t *testing.T) {
	store := new(mockArbitratorStore)
	lg := new(mockLedger)
	svc := newArbitratorService(store, new(mockUserDirectory), lg)
	ctx := context.Background()
	userID := uuid.New()

	gig := &models.ArbitratorGig{ID: uuid.New(), ArbitratorID: userID, Status: models.GigStatusCancelled}
	store.On("GetGig", ctx, gig.ID).Return(gig, nil)

	// Повторная отмена не списывает второй штраф.
	_, err := svc.CancelGig(ctx, userID, gig.ID)
	assert.True(t, apperror.IsConflict(err))
	lg.AssertNotCalled(t, "DebitPenalty", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestArbitratorService_CancelGig_Foreign(t *testing.T) {
	store := new(mockArbitratorStore)
	svc := newArbitratorService(store, new(mockUserDirectory), new(mockLedger))
	ctx := context.Background()

	gig := &models.ArbitratorGig{ID: uuid.New(), ArbitratorID: uuid.New(), Status: models.GigStatusBooked}
	store.On("GetGig", ctx, gig.ID).Return(gig, nil)

	_, err := svc.CancelGig(ctx, uuid.New(), gig.ID)
	assert.True(t, apperror.IsForbidden(err))
}

func TestArbitratorService_SetPresence_Invalid(t *testing.T) {
	svc := newArbitratorService(new(mockArbitratorStore), new(mockUserDirectory), new(mockLedger))

	err := svc.SetPresence(context.Background(), uuid.New(), "away")
	assert.True(t, apperror.IsValidation(err))
}
