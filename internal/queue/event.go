package queue

import "time"

// AuthQueueName is the durable queue carrying authentication events.
const AuthQueueName = "auth.events"

// Event types published by the authenticator.
const (
	EventLogin          = "login"
	EventMobileLogin    = "mobile_login"
	EventMobileRegister = "mobile_register"
	EventRefresh        = "refresh"
	EventLogout         = "logout"
)

// AuthEvent is the message published for every authentication state change.
// The payload intentionally carries no secrets: ids, addresses and the role
// name only.
type AuthEvent struct {
	EventID  string    `json:"event_id"`
	Type     string    `json:"type"`
	UserID   uint64    `json:"user_id,omitempty"`
	RoleName string    `json:"role_name,omitempty"`
	IP       string    `json:"ip,omitempty"`
	At       time.Time `json:"at"`
}
