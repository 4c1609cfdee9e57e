package contracts

// NotificationMessage is published by the booking service whenever a join
// request is submitted or decided, and consumed by the notify service.
// Routing key: "notify.user.{recipient_id}" on ExchangeNotifyTopic.
type NotificationMessage struct {
	Event        string `json:"event"` // REQUEST_SUBMITTED | REQUEST_ACCEPTED | REQUEST_REJECTED | ...
	RecipientID  string `json:"recipient_id"`
	RideID       string `json:"ride_id"`
	RequestID    string `json:"request_id,omitempty"`
	FromLocation string `json:"from_location,omitempty"`
	ToLocation   string `json:"to_location,omitempty"`
	Seats        int    `json:"seats,omitempty"`
	Envelope
}
