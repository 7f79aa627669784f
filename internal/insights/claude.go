// Package insights is the optional LLM collaborator that turns the run's
// aggregates into a qualitative narrative. It is text-in/text-out and fully
// optional: the pipeline's output is usable without it.
package insights

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/finpulse/finpulse-bot/internal/models"
)

// Analyst produces a free-text market narrative from report data.
type Analyst interface {
	Narrative(ctx context.Context, data models.ReportData) (string, error)
}

// ClaudeAnalyst implements Analyst against the Anthropic API.
type ClaudeAnalyst struct {
	client *anthropic.Client
	model  anthropic.Model
}

var _ Analyst = (*ClaudeAnalyst)(nil)

// NewClaudeAnalyst creates an analyst using the given API key.
func NewClaudeAnalyst(apiKey string) *ClaudeAnalyst {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &ClaudeAnalyst{
		client: &client,
		model:  anthropic.Model("claude-haiku-4-5"),
	}
}

// Narrative asks the model for a qualitative reading of the run. The
// response is opaque free text; callers must degrade gracefully on error.
func (a *ClaudeAnalyst) Narrative(ctx context.Context, data models.ReportData) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 2000,
		System: []anthropic.TextBlockParam{
			{Text: "You are a financial analyst reading social-media sentiment aggregates. Summarize the market mood, notable category divergences and risks in a few short sections. Base everything strictly on the numbers provided."},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(data))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("empty response from anthropic")
	}

	return strings.TrimSpace(resp.Content[0].Text), nil
}

// BuildPrompt serializes the aggregates into the structured text prompt sent
// to the model. Categories are listed in sorted order so the prompt is
// deterministic for a given report.
func BuildPrompt(data models.ReportData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "RUN SUMMARY (generated %s)\n", data.GeneratedAt.Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "Total posts analyzed: %d\n", data.TotalPosts)
	fmt.Fprintf(&b, "Overall: %s\n\n", formatStats(data.Overall))

	names := make([]string, 0, len(data.Categories))
	for name := range data.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteString("PER-CATEGORY BREAKDOWN\n")
	for _, name := range names {
		fmt.Fprintf(&b, "- %s: %s\n", name, formatStats(data.Categories[name]))
	}

	return b.String()
}

func formatStats(stats models.CategoryStats) string {
	parts := []string{
		fmt.Sprintf("%d posts", stats.PostCount),
		fmt.Sprintf("engagement %d", stats.TotalEngagement),
		fmt.Sprintf("weighted sentiment %.3f", stats.MeanSentiment),
	}

	if len(stats.SignalCounts) > 0 {
		signals := make([]string, 0, len(stats.SignalCounts))
		for signal := range stats.SignalCounts {
			signals = append(signals, signal)
		}
		sort.Strings(signals)
		for i, signal := range signals {
			signals[i] = fmt.Sprintf("%s=%d", signal, stats.SignalCounts[signal])
		}
		parts = append(parts, "signals "+strings.Join(signals, " "))
	}

	if stats.TopPost != nil {
		text := stats.TopPost.Text
		if len(text) > 120 {
			text = text[:120] + "..."
		}
		parts = append(parts, fmt.Sprintf("top post @%s: %q", stats.TopPost.Account, text))
	}

	return strings.Join(parts, ", ")
}
