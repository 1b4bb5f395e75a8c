package domain

import "time"

// Task is an active "boost" task as returned by the GraphQL service.
type Task struct {
	ID          string    `json:"id" msgpack:"id"`
	Title       string    `json:"title" msgpack:"title"`
	Description string    `json:"description" msgpack:"description"`
	Reward      int64     `json:"reward" msgpack:"reward"`
	URL         string    `json:"url" msgpack:"url"`
	CreatedAt   time.Time `json:"created_at" msgpack:"created_at"`
}
