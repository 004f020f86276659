package users

import "time"

type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName,omitempty"`
	IsGuest     bool      `json:"isGuest"`
	CreatedAt   time.Time `json:"createdAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}
