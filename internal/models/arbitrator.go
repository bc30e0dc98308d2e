package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Arbitrator описывает арбитра платформы. Получение статуса арбитра -
// одностороннее повышение, обратной операции ядро не предоставляет.
type Arbitrator struct {
	UserID            uuid.UUID      `db:"user_id" json:"user_id"`
	Specializations   pq.StringArray `db:"specializations" json:"specializations"`
	Presence          string         `db:"presence" json:"presence"`
	PresenceUpdatedAt time.Time      `db:"presence_updated_at" json:"presence_updated_at"`
	Stake             float64        `db:"stake" json:"stake"`
	Verified          bool           `db:"verified" json:"verified"`
	AccuracyScore     float64        `db:"accuracy_score" json:"accuracy_score"`
	CompletedCount    int            `db:"completed_count" json:"completed_count"`
	TotalEarnings     float64        `db:"total_earnings" json:"total_earnings"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
}

// IsPresenceFresh проверяет, что статус "online" не устарел. Отметка
// присутствия без свежего обновления не учитывается при подборе арбитра.
func (a *Arbitrator) IsPresenceFresh(now time.Time, ttl time.Duration) bool {
	return a.Presence == PresenceOnline && now.Sub(a.PresenceUpdatedAt) <= ttl
}

// HasSpecialization проверяет наличие специализации у арбитра.
func (a *Arbitrator) HasSpecialization(domain string) bool {
	for _, s := range a.Specializations {
		if s == domain {
			return true
		}
	}
	return false
}

// ArbitratorGig описывает забронированное окно времени арбитра.
// Интервал полуоткрытый: [start_time, end_time).
type ArbitratorGig struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	ArbitratorID uuid.UUID  `db:"arbitrator_id" json:"arbitrator_id"`
	StartTime    time.Time  `db:"start_time" json:"start_time"`
	EndTime      time.Time  `db:"end_time" json:"end_time"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	CancelledAt  *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// Overlaps проверяет пересечение с другим полуоткрытым интервалом.
func (g *ArbitratorGig) Overlaps(start, end time.Time) bool {
	return g.StartTime.Before(end) && g.EndTime.After(start)
}
