// Package logkey holds the slog attribute keys shared by every service.
package logkey

const (
	TraceID   = "trace_id"
	ERROR     = "error"
	OrderID   = "order_id"
	PartnerID = "partner_id"
	UserID    = "user_id"
	PaymentID = "payment_id"
	EventID   = "event_id"
)
