package service

import "github.com/google/uuid"

// События жизненного цикла, отправляемые во внешний sink уведомлений.
// Доставка не входит в инварианты ядра: события best-effort.
const (
	EventContractCreated    = "contract.created"
	EventContractFunded     = "contract.funded"
	EventContractSigned     = "contract.signed"
	EventMilestoneSubmitted = "milestone.submitted"
	EventMilestoneRevision  = "milestone.revision_requested"
	EventMilestonePaid      = "milestone.paid"
	EventDisputeRaised      = "dispute.raised"
	EventDisputeResolved    = "dispute.resolved"
	EventGigBooked          = "gig.booked"
	EventGigCancelled       = "gig.cancelled"
)

// EventPublisher - граница sink'а уведомлений/аудита.
type EventPublisher interface {
	Publish(userID uuid.UUID, event string, payload any)
}

// publishTo отправляет событие каждому получателю, допускает nil publisher.
func publishTo(events EventPublisher, event string, payload any, recipients ...uuid.UUID) {
	if events == nil {
		return
	}
	for _, r := range recipients {
		if r != uuid.Nil {
			events.Publish(r, event, payload)
		}
	}
}
