package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"docinsight-backend/internal/shared/telemetry"
)

const encodingName = "cl100k_base"

// charsPerToken approximates token counts when the BPE ranks are unavailable.
const charsPerToken = 4

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

func encoder() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		e, err := tiktoken.GetEncoding(encodingName)
		if err != nil {
			telemetry.Warn("llm.tokenizer_unavailable", map[string]any{
				"encoding": encodingName,
				"error":    err.Error(),
			})
			return
		}
		enc = e
	})
	return enc
}

// CountTokens estimates the prompt tokens of text.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if e := encoder(); e != nil {
		return len(e.Encode(text, nil, nil))
	}
	return (len([]rune(text)) + charsPerToken - 1) / charsPerToken
}

// TruncateToTokens returns the longest prefix of text that fits in maxTokens.
func TruncateToTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if e := encoder(); e != nil {
		tokens := e.Encode(text, nil, nil)
		if len(tokens) <= maxTokens {
			return text
		}
		return e.Decode(tokens[:maxTokens])
	}
	runes := []rune(text)
	limit := maxTokens * charsPerToken
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// Budget hands out a fixed token allowance across several context sections.
type Budget struct {
	remaining int
}

func NewBudget(maxTokens int) *Budget {
	return &Budget{remaining: maxTokens}
}

// Take returns text cut to the remaining allowance and charges for it.
// It returns "" once the budget is spent.
func (b *Budget) Take(text string) string {
	if b == nil || b.remaining <= 0 || text == "" {
		return ""
	}
	cut := TruncateToTokens(text, b.remaining)
	b.remaining -= CountTokens(cut)
	if b.remaining < 0 {
		b.remaining = 0
	}
	return cut
}

func (b *Budget) Remaining() int {
	if b == nil {
		return 0
	}
	return b.remaining
}
