package model

// LogMessage is the broadcast payload for one log line, delivered to every
// viewer connection in the session's room.
type LogMessage struct {
	Type      string `json:"type"`
	Pod       string `json:"pod"`
	Container string `json:"container"`
	Line      string `json:"line"`
	Room      string `json:"room"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ErrorMessage reports a failure to a room or to a single connection. Room is
// empty when the error is a direct reply to the issuing connection.
type ErrorMessage struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Message string `json:"message"`
}

const (
	MessageTypeLog   = "log"
	MessageTypeError = "error"
)

// Command types accepted from viewer connections.
const (
	CommandTypeStart = "start"
	CommandTypeStop  = "stop"
)
