package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventLog - запись журнала событий жизненного цикла. Журнал позволяет
// участнику увидеть события, пришедшие пока он был отключён от ленты.
type EventLog struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	UserID    uuid.UUID       `db:"user_id" json:"user_id"`
	Event     string          `db:"event" json:"event"`
	Data      json.RawMessage `db:"data" json:"data"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
