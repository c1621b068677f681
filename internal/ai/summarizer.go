package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/runwayscope/runwayscope/internal/reporting"
	"github.com/runwayscope/runwayscope/pkg/logger"
)

const summarizerSystemPrompt = `You are an aviation traffic analyst. You are given runway activity
statistics for a single airport: classified takeoffs, landings and
touch-n-gos, hourly traffic counts and runway direction usage. Write a
concise natural-language summary of the day's runway activity. Mention
notable patterns (busy hours, dominant runway direction, unusual events
like touch-n-gos). Do not invent data that is not present.`

// Summarizer produces natural-language summaries of runway activity
type Summarizer struct {
	provider ChatProvider
	config   ChatConfig
	logger   *logger.Logger
}

// NewSummarizer creates a summarizer backed by the given provider
func NewSummarizer(provider ChatProvider, config ChatConfig, loggerObj *logger.Logger) *Summarizer {
	return &Summarizer{
		provider: provider,
		config:   config,
		logger:   loggerObj.Named("summarizer"),
	}
}

// Summarize renders the report as text and asks the provider for a summary
func (s *Summarizer) Summarize(ctx context.Context, summary *reporting.Summary) (string, error) {
	prompt := renderSummaryPrompt(summary)

	s.logger.Debug("Requesting activity summary",
		logger.Int("events", len(summary.RecentEvents)),
		logger.String("model", s.config.Model))

	text, err := s.provider.ChatCompletion(ctx, []ChatMessage{
		{Role: "system", Content: summarizerSystemPrompt},
		{Role: "user", Content: prompt},
	}, s.config)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// renderSummaryPrompt flattens the report into plain text for the LLM
func renderSummaryPrompt(summary *reporting.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Runways: %s/%s\n", summary.Runways[0], summary.Runways[1])
	fmt.Fprintf(&b, "Total pings recorded: %d\n\n", summary.PingCount)

	b.WriteString("Event counts:\n")
	for event, count := range summary.EventCounts {
		fmt.Fprintf(&b, "  %s: %d\n", event, count)
	}

	b.WriteString("\nRunway direction usage:\n")
	for runway, count := range summary.RunwayCounts {
		fmt.Fprintf(&b, "  runway %s: %d\n", runway, count)
	}

	b.WriteString("\nHourly ping counts:\n")
	for _, h := range summary.HourlyCounts {
		fmt.Fprintf(&b, "  %s: %d\n", h.Hour, h.Count)
	}

	b.WriteString("\nRecent events:\n")
	for _, e := range summary.RecentEvents {
		fmt.Fprintf(&b, "  %s  %s  %s  runway %s",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Event, e.Callsign, e.Runway)
		if e.Airline != "" {
			fmt.Fprintf(&b, "  (%s)", e.Airline)
		}
		if e.ConnectingAirport != "" {
			fmt.Fprintf(&b, "  via %s", e.ConnectingAirport)
		} else if e.ConnectingIATA != "" {
			fmt.Fprintf(&b, "  via %s", e.ConnectingIATA)
		}
		b.WriteString("\n")
	}

	return b.String()
}
