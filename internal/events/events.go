// internal/events/events.go
package events

import "time"

type EventType string

const (
	EventSubscriptionCreated  EventType = "subscription.created"
	EventSubscriptionRenewed  EventType = "subscription.renewed"
	EventSubscriptionCanceled EventType = "subscription.canceled"
	EventSubscriptionPastDue  EventType = "subscription.past_due"
	EventInvoiceCreated       EventType = "invoice.created"
	EventInvoicePaid          EventType = "invoice.paid"
	EventPaymentFailed        EventType = "payment.failed"
)

// Event is the envelope pushed to connected dashboard clients.
type Event struct {
	Type           EventType   `json:"type"`
	OrganizationID int64       `json:"organization_id"`
	Data           interface{} `json:"data,omitempty"`
	At             time.Time   `json:"at"`
}

// Publisher decouples services from the websocket hub; a nil Publisher is
// valid and drops events.
type Publisher interface {
	Publish(orgID int64, eventType EventType, data interface{})
}
