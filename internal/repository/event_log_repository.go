package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/freelance-escrow/internal/models"
)

// EventLogRepository хранит журнал событий жизненного цикла.
type EventLogRepository struct {
	db *sqlx.DB
}

func NewEventLogRepository(db *sqlx.DB) *EventLogRepository {
	return &EventLogRepository{db: db}
}

// SaveEvent записывает событие в журнал.
func (r *EventLogRepository) SaveEvent(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO event_log (user_id, event, data) VALUES ($1, $2, $3)
	`, userID, event, raw)
	return err
}

// ListByUser возвращает последние события пользователя.
func (r *EventLogRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.EventLog, error) {
	var events []models.EventLog
	err := r.db.SelectContext(ctx, &events, `
		SELECT * FROM event_log WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return events, err
}
