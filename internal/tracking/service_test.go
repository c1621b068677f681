package tracking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runwayscope/runwayscope/internal/websocket"
)

type memStorage struct {
	pings   []*Ping
	flights map[string]*FlightInfo
	maxID   int64
}

func newMemStorage(maxID int64) *memStorage {
	return &memStorage{flights: make(map[string]*FlightInfo), maxID: maxID}
}

func (s *memStorage) InsertPings(pings []*Ping) error {
	s.pings = append(s.pings, pings...)
	return nil
}

func (s *memStorage) UpsertFlight(info *FlightInfo) error {
	s.flights[info.FlightID] = info
	return nil
}

func (s *memStorage) MaxPingID() (int64, error) {
	return s.maxID, nil
}

type memHub struct {
	messages []*websocket.Message
}

func (h *memHub) Broadcast(message *websocket.Message) {
	h.messages = append(h.messages, message)
}

func TestServiceFetchAndStore(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"aircraft": [
				{"id": "f1", "latitude": 43.63, "longitude": 1.37, "altitude": 800, "time": 1756459200, "callsign": "AFR123"},
				{"id": "f2", "latitude": 43.60, "longitude": 1.40, "time": 1756459201},
				{"id": "", "latitude": 1, "longitude": 2},
				{"id": "f3", "latitude": 95, "longitude": 2}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"?bounds={bounds}", "", "X-API-Key", 43.6287, 1.3642, 15000, time.Second, testLogger(t))
	storage := newMemStorage(100)
	hub := &memHub{}

	svc, err := NewService(client, storage, hub, time.Minute, testLogger(t))
	require.NoError(t, err)

	require.NoError(t, svc.fetchAndStore(context.Background()))

	// The empty-id and out-of-range records are dropped
	require.Len(t, storage.pings, 2)

	// IDs continue from the persisted maximum
	assert.Equal(t, int64(101), storage.pings[0].ID)
	assert.Equal(t, int64(102), storage.pings[1].ID)

	assert.Equal(t, "f1", storage.pings[0].FlightID)
	assert.Equal(t, time.Unix(1756459200, 0).UTC(), storage.pings[0].Timestamp)
	require.NotNil(t, storage.pings[0].Altitude)
	assert.Equal(t, 800.0, *storage.pings[0].Altitude)
	assert.Nil(t, storage.pings[1].Altitude)

	require.Contains(t, storage.flights, "f1")
	assert.Equal(t, "AFR123", storage.flights["f1"].Callsign)

	lastFetch, _ := svc.GetStatus()
	assert.False(t, lastFetch.IsZero())

	// Each stored snapshot is announced to WebSocket clients
	require.Len(t, hub.messages, 1)
	assert.Equal(t, websocket.MessageTypePingBatch, hub.messages[0].Type)
	assert.Equal(t, 2, hub.messages[0].Data["pings"])
	assert.Equal(t, 2, hub.messages[0].Data["flights"])
}

func TestServiceEmptySnapshotNotBroadcast(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"aircraft": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"?bounds={bounds}", "", "X-API-Key", 0, 0, 1000, time.Second, testLogger(t))
	hub := &memHub{}
	svc, err := NewService(client, newMemStorage(0), hub, time.Minute, testLogger(t))
	require.NoError(t, err)

	require.NoError(t, svc.fetchAndStore(context.Background()))
	assert.Empty(t, hub.messages)
}

func TestServiceStartStop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"aircraft": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"?bounds={bounds}", "", "X-API-Key", 0, 0, 1000, time.Second, testLogger(t))
	svc, err := NewService(client, newMemStorage(0), nil, time.Hour, testLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, svc.Start(ctx))

	_, ok := svc.GetStatus()
	assert.True(t, ok)

	svc.Stop()
}
