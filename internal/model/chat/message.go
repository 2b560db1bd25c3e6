package chat

import "time"

// Speaker roles for transcript entries.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one transcript turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
