package chat

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Citation points an answer at the page it was drawn from.
type Citation struct {
	Page    int    `json:"page"`
	Excerpt string `json:"excerpt"`
}

// Message is one turn of the conversation about a document.
type Message struct {
	ID         string     `json:"id"`
	DocumentID string     `json:"documentId"`
	UserID     string     `json:"userId"`
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Citations  []Citation `json:"citations"`
	CreatedAt  time.Time  `json:"createdAt"`
}
