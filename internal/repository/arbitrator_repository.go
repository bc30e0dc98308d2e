package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/freelance-escrow/internal/models"
	"github.com/ignatzorin/freelance-escrow/internal/repository/common"
)

var (
	ErrArbitratorNotFound = errors.New("arbitrator not found")
	ErrArbitratorExists   = errors.New("arbitrator already exists")
	ErrGigNotFound        = errors.New("gig not found")
	ErrGigOverlap         = errors.New("gig window overlaps an existing booking")
)

type ArbitratorRepository struct {
	db *sqlx.DB
}

func NewArbitratorRepository(db *sqlx.DB) *ArbitratorRepository {
	return &ArbitratorRepository{db: db}
}

// Create регистрирует арбитра. Повышение одностороннее: повторная
// регистрация отклоняется.
func (r *ArbitratorRepository) Create(ctx context.Context, a *models.Arbitrator) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO arbitrators (user_id, specializations, presence, presence_updated_at, stake, verified)
		VALUES ($1, $2, $3, NOW(), $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`, a.UserID, pq.Array(a.Specializations), models.PresenceOffline, a.Stake, a.Verified)
	if err != nil {
		return err
	}
	return requireRow(res, ErrArbitratorExists)
}

// GetByUser возвращает арбитра по пользователю.
func (r *ArbitratorRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Arbitrator, error) {
	return common.GetByField[models.Arbitrator](ctx, r.db, "arbitrators", "user_id", userID, ErrArbitratorNotFound)
}

// SetPresence обновляет статус присутствия вместе с отметкой времени.
// Голый флаг online без свежей отметки при подборе не учитывается.
func (r *ArbitratorRepository) SetPresence(ctx context.Context, userID uuid.UUID, presence string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE arbitrators SET presence = $2, presence_updated_at = NOW() WHERE user_id = $1
	`, userID, presence)
	if err != nil {
		return err
	}
	return requireRow(res, ErrArbitratorNotFound)
}

// FindAvailable подбирает арбитра со свежим присутствием online.
// Выбор детерминирован: единственный проход без перебора вариантов.
func (r *ArbitratorRepository) FindAvailable(ctx context.Context, staleAfter time.Time) (*models.Arbitrator, error) {
	var a models.Arbitrator
	err := r.db.GetContext(ctx, &a, `
		SELECT * FROM arbitrators
		WHERE presence = $1 AND presence_updated_at >= $2
		ORDER BY presence_updated_at DESC, user_id
		LIMIT 1
	`, models.PresenceOnline, staleAfter)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArbitratorNotFound
	}
	return &a, err
}

// FindOnDuty подбирает арбитра для строгого варианта матчинга: свежий
// online, действующее бронирование, окно которого содержит "сейчас",
// и совпадающая специализация.
func (r *ArbitratorRepository) FindOnDuty(ctx context.Context, now, staleAfter time.Time, domain string) (*models.Arbitrator, error) {
	var a models.Arbitrator
	err := r.db.GetContext(ctx, &a, `
		SELECT a.* FROM arbitrators a
		JOIN arbitrator_gigs g ON g.arbitrator_id = a.user_id
		WHERE a.presence = $1 AND a.presence_updated_at >= $2
			AND g.status = $3 AND g.start_time <= $4 AND g.end_time > $4
			AND $5 = ANY(a.specializations)
		ORDER BY a.presence_updated_at DESC, a.user_id
		LIMIT 1
	`, models.PresenceOnline, staleAfter, models.GigStatusBooked, now, domain)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArbitratorNotFound
	}
	return &a, err
}

// IncrementCompleted увеличивает счётчик разрешённых споров и заработок.
// Вызывается только после подтверждённого расчёта по спору.
func (r *ArbitratorRepository) IncrementCompleted(ctx context.Context, userID uuid.UUID, reward float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE arbitrators
		SET completed_count = completed_count + 1, total_earnings = total_earnings + $2
		WHERE user_id = $1
	`, userID, reward)
	if err != nil {
		return err
	}
	return requireRow(res, ErrArbitratorNotFound)
}

// BookGig бронирует окно [start, end) для арбитра. Проверка пересечения и
// вставка выполняются одной транзакцией; блокировка строки арбитра
// сериализует конкурентные бронирования одного арбитра.
func (r *ArbitratorRepository) BookGig(ctx context.Context, arbitratorID uuid.UUID, start, end time.Time) (*models.ArbitratorGig, error) {
	var gig models.ArbitratorGig

	err := common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var exists uuid.UUID
		err := tx.GetContext(ctx, &exists, `
			SELECT user_id FROM arbitrators WHERE user_id = $1 FOR UPDATE
		`, arbitratorID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrArbitratorNotFound
		}
		if err != nil {
			return err
		}

		// Блокировка строки арбитра сериализует бронирования, поэтому
		// пересечение полуоткрытых интервалов проверяется по всем его
		// неотменённым окнам без гонки с конкурентной вставкой.
		var existing []models.ArbitratorGig
		err = tx.SelectContext(ctx, &existing, `
			SELECT * FROM arbitrator_gigs
			WHERE arbitrator_id = $1 AND status <> $2
		`, arbitratorID, models.GigStatusCancelled)
		if err != nil {
			return err
		}
		for i := range existing {
			if existing[i].Overlaps(start, end) {
				return ErrGigOverlap
			}
		}

		return tx.GetContext(ctx, &gig, `
			INSERT INTO arbitrator_gigs (arbitrator_id, start_time, end_time, status)
			VALUES ($1, $2, $3, $4)
			RETURNING *
		`, arbitratorID, start, end, models.GigStatusBooked)
	})
	if err != nil {
		return nil, err
	}

	return &gig, nil
}

// CancelGig отменяет бронирование. Только один из конкурентных вызовов
// получает строку; уже отменённое бронирование даёт ErrStateConflict.
func (r *ArbitratorRepository) CancelGig(ctx context.Context, gigID uuid.UUID) (*models.ArbitratorGig, error) {
	var gig models.ArbitratorGig
	err := r.db.GetContext(ctx, &gig, `
		UPDATE arbitrator_gigs SET status = $2, cancelled_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)
		RETURNING *
	`, gigID, models.GigStatusCancelled, models.GigStatusBooked, models.GigStatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if checkErr := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM arbitrator_gigs WHERE id = $1)`, gigID); checkErr != nil {
			return nil, checkErr
		}
		if exists {
			return nil, ErrStateConflict
		}
		return nil, ErrGigNotFound
	}
	if err != nil {
		return nil, err
	}
	return &gig, nil
}

// GetGig возвращает бронирование по идентификатору.
func (r *ArbitratorRepository) GetGig(ctx context.Context, gigID uuid.UUID) (*models.ArbitratorGig, error) {
	return common.GetByID[models.ArbitratorGig](ctx, r.db, "arbitrator_gigs", gigID, ErrGigNotFound)
}

// ListGigs возвращает бронирования арбитра.
func (r *ArbitratorRepository) ListGigs(ctx context.Context, arbitratorID uuid.UUID, limit, offset int) ([]models.ArbitratorGig, error) {
	var gigs []models.ArbitratorGig
	err := r.db.SelectContext(ctx, &gigs, `
		SELECT * FROM arbitrator_gigs
		WHERE arbitrator_id = $1
		ORDER BY start_time DESC LIMIT $2 OFFSET $3
	`, arbitratorID, limit, offset)
	return gigs, err
}
