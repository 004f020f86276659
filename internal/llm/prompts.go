package llm

import (
	_ "embed"
	"strconv"
	"strings"
)

var (
	//go:embed prompts/summary.txt
	promptSummary string
	//go:embed prompts/keywords.txt
	promptKeywords string
	//go:embed prompts/chat.txt
	promptChat string
)

func summaryPrompt(sentences int) string {
	return strings.TrimSpace(strings.ReplaceAll(promptSummary, "{{sentences}}", strconv.Itoa(sentences)))
}

func keywordsPrompt(count int) string {
	return strings.TrimSpace(strings.ReplaceAll(promptKeywords, "{{count}}", strconv.Itoa(count)))
}

func chatPrompt() string {
	return strings.TrimSpace(promptChat)
}
