package extractions

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	TypeEntities = "entities"
	TypeKeywords = "keywords"
	TypeTables   = "tables"
	TypeSummary  = "summary"
)

const (
	SourceNLP = "nlp"
	SourceLLM = "llm"
)

var ErrNotFound = errors.New("extraction not found")

// Types lists every extraction type in display order.
var Types = []string{TypeSummary, TypeEntities, TypeKeywords, TypeTables}

// Extraction is one typed analysis result of a document. A document holds at
// most one extraction per type.
type Extraction struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"documentId"`
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	Source     string          `json:"source"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Summary is the data of a summary extraction. Extractive keeps the NLP
// summary once an LLM summary replaced Text.
type Summary struct {
	Text       string `json:"text"`
	Extractive string `json:"extractive,omitempty"`
}

// Encode builds an Extraction whose Data is the JSON form of v.
func Encode(id, documentID, typ, source string, v any, now time.Time) (Extraction, error) {
	if !ValidType(typ) {
		return Extraction{}, fmt.Errorf("unknown extraction type %q", typ)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Extraction{}, fmt.Errorf("encode %s: %w", typ, err)
	}
	return Extraction{
		ID:         id,
		DocumentID: documentID,
		Type:       typ,
		Data:       data,
		Source:     source,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Decode unmarshals Data into v.
func (e Extraction) Decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("extraction %s has no data", e.Type)
	}
	return json.Unmarshal(e.Data, v)
}

func ValidType(typ string) bool {
	for _, t := range Types {
		if t == typ {
			return true
		}
	}
	return false
}
