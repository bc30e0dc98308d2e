package ws

import (
	"github.com/google/uuid"

	"github.com/ignatzorin/freelance-escrow/internal/logger"
)

// EventAdapter подключает хаб к сервисам как sink событий жизненного
// цикла. Доставка best-effort: ошибка рассылки логируется и не влияет
// на результат операции.
type EventAdapter struct {
	hub *Hub
}

// NewEventAdapter создаёт адаптер поверх хаба.
func NewEventAdapter(hub *Hub) *EventAdapter {
	return &EventAdapter{hub: hub}
}

// Publish реализует интерфейс EventPublisher сервисного слоя.
func (a *EventAdapter) Publish(userID uuid.UUID, event string, payload any) {
	if err := a.hub.BroadcastToUser(userID, event, payload); err != nil {
		logger.Log.WithError(err).WithField("event", event).
			Warn("ws: событие не отправлено")
	}
}
