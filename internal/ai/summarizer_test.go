package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runwayscope/runwayscope/internal/reporting"
	"github.com/runwayscope/runwayscope/internal/storage/sqlite"
	"github.com/runwayscope/runwayscope/internal/tracking"
	"github.com/runwayscope/runwayscope/pkg/logger"
)

type fakeProvider struct {
	messages []ChatMessage
	config   ChatConfig
	response string
	err      error
}

func (p *fakeProvider) ChatCompletion(ctx context.Context, messages []ChatMessage, config ChatConfig) (string, error) {
	p.messages = messages
	p.config = config
	return p.response, p.err
}

func testSummary() *reporting.Summary {
	return &reporting.Summary{
		PingCount: 1234,
		EventCounts: map[tracking.RunwayEvent]int{
			tracking.EventLanding: 7,
			tracking.EventTakeoff: 5,
		},
		RunwayCounts: map[string]int{"14": 9, "32": 3},
		HourlyCounts: []sqlite.HourlyCount{{Hour: "2026-08-29 12", Count: 600}},
		RecentEvents: []reporting.Event{
			{FlightID: "f1", Callsign: "AFR123", Event: tracking.EventLanding, Runway: "14", Airline: "Air France"},
		},
		Runways: [2]string{"14", "32"},
	}
}

func TestSummarize(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)

	provider := &fakeProvider{response: " Busy afternoon on runway 14. \n"}
	s := NewSummarizer(provider, ChatConfig{Model: "gemini-2.0-flash", MaxTokens: 256}, log)

	text, err := s.Summarize(context.Background(), testSummary())
	require.NoError(t, err)
	assert.Equal(t, "Busy afternoon on runway 14.", text)

	require.Len(t, provider.messages, 2)
	assert.Equal(t, "system", provider.messages[0].Role)
	assert.Equal(t, "user", provider.messages[1].Role)
	assert.Equal(t, "gemini-2.0-flash", provider.config.Model)

	prompt := provider.messages[1].Content
	assert.Contains(t, prompt, "Runways: 14/32")
	assert.Contains(t, prompt, "1234")
	assert.Contains(t, prompt, "landing")
	assert.Contains(t, prompt, "AFR123")
	assert.Contains(t, prompt, "2026-08-29 12: 600")
}

func TestSummarizeProviderError(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	require.NoError(t, err)

	provider := &fakeProvider{err: errors.New("quota exceeded")}
	s := NewSummarizer(provider, ChatConfig{Model: "gemini-2.0-flash"}, log)

	_, err = s.Summarize(context.Background(), testSummary())
	assert.Error(t, err)
}
