package pages

import "time"

// Page holds the extracted text of one PDF page. PageNumber is 1-based.
type Page struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	PageNumber int       `json:"pageNumber"`
	Text       string    `json:"text"`
	CharCount  int       `json:"charCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Build turns raw per-page texts into Page records for a document.
func Build(documentID string, texts []string, newID func() string, now time.Time) []Page {
	out := make([]Page, 0, len(texts))
	for i, text := range texts {
		out = append(out, Page{
			ID:         newID(),
			DocumentID: documentID,
			PageNumber: i + 1,
			Text:       text,
			CharCount:  len([]rune(text)),
			CreatedAt:  now,
		})
	}
	return out
}
