package documents

import "time"

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// ProgressFailed is the progress value stored alongside StatusError.
const ProgressFailed = -1

// Document represents an uploaded PDF owned by a user.
type Document struct {
	ID                  string
	UserID              string
	FileName            string
	MimeType            string
	SizeBytes           int64
	StorageProvider     string
	StorageKey          string
	Status              string
	Progress            int
	PageCount           int
	ErrorMessage        string
	ProcessingStartedAt *time.Time
	CompletedAt         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ValidStatus reports whether s is one of the document states.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}
