package main

// Run the processing analyses on a local PDF and print the results:
//   go run ./cmd/inspect -pdf ./report.pdf [-llm] [-out result.json]

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docinsight-backend/internal/bootstrap"
	"docinsight-backend/internal/extract"
	"docinsight-backend/internal/llm"
	"docinsight-backend/internal/processing"
	"docinsight-backend/internal/shared/config"
)

type result struct {
	File        string         `json:"file"`
	PageCount   int            `json:"pageCount"`
	Extractions map[string]any `json:"extractions"`
	LLM         *llmResult     `json:"llm,omitempty"`
}

type llmResult struct {
	Provider string   `json:"provider"`
	Summary  string   `json:"summary,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

func main() {
	cfg := config.Load()

	pdfPath := flag.String("pdf", "", "Path to a PDF file")
	outPath := flag.String("out", "", "Path to write JSON output (optional)")
	useLLM := flag.Bool("llm", false, "Also run LLM summary and keywords")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider (openai, gemini, ollama)")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	flag.Parse()

	if strings.TrimSpace(*pdfPath) == "" {
		exitErr("pdf path is required")
	}
	if !strings.EqualFold(filepath.Ext(*pdfPath), ".pdf") {
		exitErr(fmt.Sprintf("unsupported file type: %s", filepath.Ext(*pdfPath)))
	}
	data, err := os.ReadFile(*pdfPath)
	if err != nil {
		exitErr(fmt.Sprintf("read pdf: %v", err))
	}

	ctx := context.Background()
	out, err := inspect(ctx, filepath.Base(*pdfPath), data)
	if err != nil {
		exitErr(err.Error())
	}

	if *useLLM {
		cfg.LLMProvider = *provider
		cfg.LLMModel = *model
		client, err := bootstrap.BuildLLM(ctx, cfg)
		if err != nil {
			exitErr(err.Error())
		}
		if client == nil {
			exitErr("llm provider is not configured")
		}
		texts, _ := extract.ParsePages(ctx, data)
		out.LLM = enhance(ctx, &llm.Assistant{Client: client, MaxContextTokens: cfg.LLMMaxContextTokens}, processing.NewInput(texts).Text)
	}

	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	pretty = append(pretty, '\n')

	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
}

func inspect(ctx context.Context, name string, data []byte) (result, error) {
	if err := extract.ValidatePDF(data); err != nil {
		return result{}, fmt.Errorf("validate pdf: %w", err)
	}
	texts, err := extract.ParsePages(ctx, data)
	if err != nil {
		return result{}, fmt.Errorf("extract pages: %w", err)
	}
	return result{
		File:        name,
		PageCount:   len(texts),
		Extractions: processing.Analyze(ctx, name, processing.DefaultStages(), texts),
	}, nil
}

func enhance(ctx context.Context, assistant *llm.Assistant, text string) *llmResult {
	res := &llmResult{Provider: assistant.Client.Provider()}
	summary, err := assistant.Summarize(ctx, text, 5)
	if err != nil {
		res.Errors = append(res.Errors, "summary: "+err.Error())
	}
	res.Summary = summary
	keywords, err := assistant.Keywords(ctx, text, 15)
	if err != nil {
		res.Errors = append(res.Errors, "keywords: "+err.Error())
	}
	res.Keywords = keywords
	return res
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
