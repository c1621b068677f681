// Package api exposes the HTTP surface: ping and flight queries, runway
// event listings, traffic statistics, on-demand classification and the
// WebSocket stream.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/runwayscope/runwayscope/internal/ai"
	"github.com/runwayscope/runwayscope/internal/config"
	"github.com/runwayscope/runwayscope/internal/reporting"
	"github.com/runwayscope/runwayscope/internal/runway"
	"github.com/runwayscope/runwayscope/internal/storage/sqlite"
	"github.com/runwayscope/runwayscope/internal/tracking"
	"github.com/runwayscope/runwayscope/internal/websocket"
	"github.com/runwayscope/runwayscope/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	storage          *sqlite.PingStorage
	trackingService  *tracking.Service
	engine           *runway.Engine
	reportingService *reporting.Service
	summarizer       *ai.Summarizer
	config           *config.Config
	logger           *logger.Logger
	wsServer         *websocket.Server

	classifyMu sync.Mutex // one classification run at a time
	startedAt  time.Time
}

// NewHandler creates a new API handler. summarizer may be nil when the AI
// summary is disabled.
func NewHandler(
	storage *sqlite.PingStorage,
	trackingService *tracking.Service,
	engine *runway.Engine,
	reportingService *reporting.Service,
	summarizer *ai.Summarizer,
	config *config.Config,
	logger *logger.Logger,
	wsServer *websocket.Server,
) *Handler {
	return &Handler{
		storage:          storage,
		trackingService:  trackingService,
		engine:           engine,
		reportingService: reportingService,
		summarizer:       summarizer,
		config:           config,
		logger:           logger.Named("api-handler"),
		wsServer:         wsServer,
		startedAt:        time.Now().UTC(),
	}
}

// GetPings returns recent pings, optionally filtered by flight
func (h *Handler) GetPings(w http.ResponseWriter, r *http.Request) {
	flightID := r.URL.Query().Get("flight_id")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	pings, err := h.storage.Pings(flightID, limit)
	if err != nil {
		h.logger.Error("Failed to query pings", logger.Error(err))
		http.Error(w, "failed to query pings", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"count": len(pings),
		"pings": pings,
	})
}

// GetFlights returns all tracked flights
func (h *Handler) GetFlights(w http.ResponseWriter, r *http.Request) {
	flights, err := h.storage.Flights()
	if err != nil {
		h.logger.Error("Failed to query flights", logger.Error(err))
		http.Error(w, "failed to query flights", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"count":   len(flights),
		"flights": flights,
	})
}

// GetEvents returns all classified runway events, enriched with airline and
// connecting airport metadata
func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.reportingService.Events()
	if err != nil {
		h.logger.Error("Failed to build event listing", logger.Error(err))
		http.Error(w, "failed to build event listing", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"count":  len(events),
		"events": events,
	})
}

// GetZone returns the runway-proximity region geometry
func (h *Handler) GetZone(w http.ResponseWriter, r *http.Request) {
	pred := h.engine.Predicate()
	WriteJSON(w, http.StatusOK, map[string]any{
		"ring":                pred.Ring(),
		"altitude_ceiling_ft": pred.CeilingFt(),
		"runways":             h.reportingService.Runways(),
	})
}

// Classify runs the runway event engine over all stored candidate flights
// and broadcasts the resulting events
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	if !h.classifyMu.TryLock() {
		http.Error(w, "classification already in progress", http.StatusConflict)
		return
	}
	defer h.classifyMu.Unlock()

	stats, eventPings, err := h.engine.Run(r.Context())
	if err != nil {
		h.logger.Error("Classification run failed", logger.Error(err))
		http.Error(w, fmt.Sprintf("classification failed: %v", err), http.StatusInternalServerError)
		return
	}

	for _, p := range eventPings {
		h.wsServer.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeRunwayEvent,
			Data: map[string]any{
				"flight_id": p.FlightID,
				"event":     p.Event,
				"timestamp": p.Timestamp,
				"runway":    h.reportingService.RunwayForHeading(p.Heading),
			},
		})
	}

	h.wsServer.Broadcast(&websocket.Message{
		Type: websocket.MessageTypeClassificationComplete,
		Data: map[string]any{
			"flights":     stats.Flights,
			"pings":       stats.Pings,
			"events":      stats.Events,
			"duration_ms": stats.Duration.Milliseconds(),
		},
	})

	WriteJSON(w, http.StatusOK, stats)
}

// GetHourlyStats returns ping counts bucketed by hour
func (h *Handler) GetHourlyStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.reportingService.HourlyCounts()
	if err != nil {
		h.logger.Error("Failed to query hourly stats", logger.Error(err))
		http.Error(w, "failed to query hourly stats", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"hours": counts})
}

// GetEventStats returns event counts per label
func (h *Handler) GetEventStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.storage.EventCounts()
	if err != nil {
		h.logger.Error("Failed to query event stats", logger.Error(err))
		http.Error(w, "failed to query event stats", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"events": counts})
}

// GetRunwayStats returns event counts per runway direction
func (h *Handler) GetRunwayStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.reportingService.RunwayCounts()
	if err != nil {
		h.logger.Error("Failed to query runway stats", logger.Error(err))
		http.Error(w, "failed to query runway stats", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"runways": h.reportingService.Runways(),
		"counts":  counts,
	})
}

// GetSummary returns the aggregate activity report
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reportingService.BuildSummary(50)
	if err != nil {
		h.logger.Error("Failed to build summary", logger.Error(err))
		http.Error(w, "failed to build summary", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// GetAISummary returns a natural-language summary of runway activity
func (h *Handler) GetAISummary(w http.ResponseWriter, r *http.Request) {
	if h.summarizer == nil {
		http.Error(w, "AI summary is not enabled", http.StatusServiceUnavailable)
		return
	}

	summary, err := h.reportingService.BuildSummary(50)
	if err != nil {
		h.logger.Error("Failed to build summary", logger.Error(err))
		http.Error(w, "failed to build summary", http.StatusInternalServerError)
		return
	}

	text, err := h.summarizer.Summarize(r.Context(), summary)
	if err != nil {
		h.logger.Error("Failed to generate AI summary", logger.Error(err))
		http.Error(w, fmt.Sprintf("failed to generate summary: %v", err), http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"summary":      text,
		"generated_at": time.Now().UTC(),
	})
}

// GetStatus returns service health information
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	lastFetch, fetchOK := h.trackingService.GetStatus()

	pingCount, err := h.storage.PingCount()
	if err != nil {
		h.logger.Error("Failed to count pings", logger.Error(err))
		http.Error(w, "failed to count pings", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"airport":         h.config.Station.AirportCode,
		"uptime_seconds":  int(time.Since(h.startedAt).Seconds()),
		"last_fetch_time": lastFetch,
		"feed_ok":         fetchOK,
		"ping_count":      pingCount,
	})
}

// HandleWebSocket upgrades the connection and attaches it to the hub
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsServer.HandleConnection(w, r)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
