package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignatzorin/freelance-escrow/internal/ledger"
	"github.com/ignatzorin/freelance-escrow/internal/logger"
	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/pkg/apperror"
	"github.com/ignatzorin/freelance-escrow/internal/repository"
	"github.com/ignatzorin/freelance-escrow/internal/validation"
)

// ArbitratorStore описывает зависимости ArbitratorService от слоя хранилища.
type ArbitratorStore interface {
	Create(ctx context.Context, a *models.Arbitrator) error
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Arbitrator, error)
	SetPresence(ctx context.Context, userID uuid.UUID, presence string) error
	BookGig(ctx context.Context, arbitratorID uuid.UUID, start, end time.Time) (*models.ArbitratorGig, error)
	CancelGig(ctx context.Context, gigID uuid.UUID) (*models.ArbitratorGig, error)
	GetGig(ctx context.Context, gigID uuid.UUID) (*models.ArbitratorGig, error)
	ListGigs(ctx context.Context, arbitratorID uuid.UUID, limit, offset int) ([]models.ArbitratorGig, error)
}

// ArbitratorConfig - параметры каталога арбитров.
type ArbitratorConfig struct {
	MinStake         float64
	GigCancelPenalty float64
}

// UserDirectory отдаёт учетную запись для проверки личности кандидата.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// ArbitratorService ведёт каталог арбитров: повышение, присутствие,
// бронирование рабочих окон.
type ArbitratorService struct {
	arbitrators ArbitratorStore
	users       UserDirectory
	ledger      ledger.Adapter
	events      EventPublisher
	cfg         ArbitratorConfig
	now         func() time.Time
}

func NewArbitratorService(arbitrators ArbitratorStore, users UserDirectory, lg ledger.Adapter, events EventPublisher, cfg ArbitratorConfig) *ArbitratorService {
	return &ArbitratorService{arbitrators: arbitrators, users: users, ledger: lg, events: events, cfg: cfg, now: time.Now}
}

// Apply повышает пользователя до арбитра. Повышение одностороннее,
// повторная заявка отклоняется.
func (s *ArbitratorService) Apply(ctx context.Context, userID uuid.UUID, specializations []string, stake float64) (*models.Arbitrator, error) {
	if len(specializations) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите хотя бы одну специализацию")
	}
	if len(specializations) > models.MaxSpecializations {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("не более %d специализаций", models.MaxSpecializations))
	}
	for _, domain := range specializations {
		if err := validation.ValidateDomain(domain); err != nil {
			return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
		}
	}
	if stake < s.cfg.MinStake {
		return nil, apperror.New(apperror.ErrCodeValidation,
			fmt.Sprintf("стейк не может быть меньше %.0f", s.cfg.MinStake))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "пользователь не найден")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить пользователя")
	}

	arb := &models.Arbitrator{
		UserID:          userID,
		Specializations: pq.StringArray(specializations),
		Presence:        models.PresenceOffline,
		Stake:           stake,
		Verified:        user.IsVerified,
	}
	if err := s.arbitrators.Create(ctx, arb); err != nil {
		if errors.Is(err, repository.ErrArbitratorExists) {
			return nil, apperror.New(apperror.ErrCodeConflict, "пользователь уже является арбитром")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось зарегистрировать арбитра")
	}
	return arb, nil
}

// SetPresence обновляет статус присутствия арбитра. Отметка времени
// обновляется при каждом вызове: online со старой отметкой при подборе
// арбитра не учитывается.
func (s *ArbitratorService) SetPresence(ctx context.Context, userID uuid.UUID, presence string) error {
	if _, ok := models.ValidPresenceStatuses[presence]; !ok {
		return apperror.New(apperror.ErrCodeValidation, "статус присутствия должен быть online или offline")
	}
	if err := s.arbitrators.SetPresence(ctx, userID, presence); err != nil {
		if errors.Is(err, repository.ErrArbitratorNotFound) {
			return apperror.ErrArbitratorNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить присутствие")
	}
	return nil
}

// BookGig бронирует рабочее окно арбитра. Пересечения проверяются под
// блокировкой строки арбитра, интервалы полуоткрытые: окна встык
// пересечением не считаются.
func (s *ArbitratorService) BookGig(ctx context.Context, userID uuid.UUID, start, end time.Time) (*models.ArbitratorGig, error) {
	if err := validation.ValidateGigWindow(start, end, s.now()); err != nil {
		return nil, apperror.New(apperror.ErrCodeValidation, err.Error())
	}
	arb, err := s.getArbitrator(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Бронировать окна может только арбитр, прошедший порог допуска:
	// подтверждённая личность и стейк не ниже минимума.
	if !arb.Verified || arb.Stake < s.cfg.MinStake {
		return nil, apperror.New(apperror.ErrCodeForbidden, "арбитр не прошёл порог допуска к бронированию")
	}

	gig, err := s.arbitrators.BookGig(ctx, userID, start, end)
	if err != nil {
		if errors.Is(err, repository.ErrGigOverlap) {
			return nil, apperror.New(apperror.ErrCodeConflict, "окно пересекается с существующим бронированием")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось забронировать окно")
	}

	publishTo(s.events, EventGigBooked, gig, userID)
	return gig, nil
}

// CancelGig отменяет бронирование с фиксированным штрафом, не зависящим
// от срока до начала окна. Штраф списывается по идемпотентному ключу
// бронирования, поэтому повтор отмены не удваивает списание.
func (s *ArbitratorService) CancelGig(ctx context.Context, userID, gigID uuid.UUID) (*models.ArbitratorGig, error) {
	gig, err := s.arbitrators.GetGig(ctx, gigID)
	if err != nil {
		if errors.Is(err, repository.ErrGigNotFound) {
			return nil, apperror.ErrGigNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить бронирование")
	}
	if gig.ArbitratorID != userID {
		return nil, apperror.ErrForbidden
	}
	if gig.Status == models.GigStatusCancelled {
		return nil, apperror.New(apperror.ErrCodeConflict, "бронирование уже отменено")
	}

	// Штраф списываем до смены статуса: при сбое записи повтор вызова
	// безопасен, второго списания по тому же ключу не будет.
	if s.cfg.GigCancelPenalty > 0 {
		if _, err := s.ledger.DebitPenalty(ctx, userID, ledger.PenaltyKey(gigID), s.cfg.GigCancelPenalty); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeSettlement, "штраф не подтверждён, повторите запрос")
		}
	}

	cancelled, err := s.arbitrators.CancelGig(ctx, gigID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStateConflict):
			return nil, apperror.New(apperror.ErrCodeConflict, "бронирование уже отменено")
		case errors.Is(err, repository.ErrGigNotFound):
			return nil, apperror.ErrGigNotFound
		}
		logger.Log.WithError(err).WithField("gig_id", gigID).
			Error("штраф списан, но бронирование не отменено")
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось отменить бронирование, повторите запрос")
	}

	publishTo(s.events, EventGigCancelled, cancelled, userID)
	return cancelled, nil
}

// GetArbitrator возвращает карточку арбитра.
func (s *ArbitratorService) GetArbitrator(ctx context.Context, userID uuid.UUID) (*models.Arbitrator, error) {
	return s.getArbitrator(ctx, userID)
}

// ListGigs возвращает бронирования арбитра.
func (s *ArbitratorService) ListGigs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.ArbitratorGig, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.arbitrators.ListGigs(ctx, userID, limit, offset)
}

// Balance возвращает доступный баланс пользователя в леджере.
func (s *ArbitratorService) Balance(ctx context.Context, userID uuid.UUID) (float64, error) {
	balance, err := s.ledger.BalanceOf(ctx, userID)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeSettlement, "леджер недоступен")
	}
	return balance, nil
}

func (s *ArbitratorService) getArbitrator(ctx context.Context, userID uuid.UUID) (*models.Arbitrator, error) {
	arb, err := s.arbitrators.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrArbitratorNotFound) {
			return nil, apperror.ErrArbitratorNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось загрузить арбитра")
	}
	return arb, nil
}
