package ws

import "boostclics/internal/domain"

const (
	// client - server
	MsgPing    = "ping"
	MsgRefresh = "refresh"

	// server - client
	MsgTasks = "tasks"
	MsgPong  = "pong"
	MsgError = "error"
)

type Message struct {
	Type  string        `json:"type"`
	Tasks []domain.Task `json:"tasks,omitempty"`
	Error string        `json:"error,omitempty"`
}
