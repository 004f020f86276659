package documents

import (
	"time"

	"docinsight-backend/internal/extractions"
	"docinsight-backend/internal/pages"
)

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID          string     `json:"documentId"`
	FileName            string     `json:"fileName"`
	MimeType            string     `json:"mimeType"`
	SizeBytes           int64      `json:"sizeBytes"`
	Status              string     `json:"status"`
	Progress            int        `json:"progress"`
	PageCount           int        `json:"pageCount"`
	ErrorMessage        string     `json:"errorMessage,omitempty"`
	ProcessingStartedAt *time.Time `json:"processingStartedAt,omitempty"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
	UploadedAt          time.Time  `json:"uploadedAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// DetailResponse adds the analysis results, keyed by extraction type.
type DetailResponse struct {
	DocumentResponse
	Extractions map[string]extractions.Extraction `json:"extractions"`
}

type PagesResponse struct {
	DocumentID string       `json:"documentId"`
	PageCount  int          `json:"pageCount"`
	Pages      []pages.Page `json:"pages"`
}

// ToResponse maps a document to its API representation.
func ToResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:          doc.ID,
		FileName:            doc.FileName,
		MimeType:            doc.MimeType,
		SizeBytes:           doc.SizeBytes,
		Status:              doc.Status,
		Progress:            doc.Progress,
		PageCount:           doc.PageCount,
		ErrorMessage:        doc.ErrorMessage,
		ProcessingStartedAt: doc.ProcessingStartedAt,
		CompletedAt:         doc.CompletedAt,
		UploadedAt:          doc.CreatedAt,
		UpdatedAt:           doc.UpdatedAt,
	}
}

func toDetailResponse(d Detail) DetailResponse {
	byType := make(map[string]extractions.Extraction, len(d.Extractions))
	for _, e := range d.Extractions {
		byType[e.Type] = e
	}
	return DetailResponse{
		DocumentResponse: ToResponse(d.Document),
		Extractions:      byType,
	}
}
