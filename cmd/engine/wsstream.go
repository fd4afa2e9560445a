// -----------------------------------------------------------------------
// Last Modified: Thursday, 30th July 2026 12:00:00 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scrapeengine/internal/events"
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// eventStream serves every published engine event to connected websocket
// clients, the outer adapter §9 keeps off the orchestrator's own path: the
// broadcaster fans out in-process, this just relays to whoever is watching.
type eventStream struct {
	logger      arbor.ILogger
	broadcaster *events.Broadcaster
	mu          sync.Mutex
	clients     map[*websocket.Conn]*sync.Mutex
}

func newEventStream(logger arbor.ILogger, broadcaster *events.Broadcaster) *eventStream {
	s := &eventStream{
		logger:      logger,
		broadcaster: broadcaster,
		clients:     make(map[*websocket.Conn]*sync.Mutex),
	}
	broadcaster.Subscribe(s.relay)
	return s
}

// ServeHTTP upgrades the request and registers the connection for relay.
// Clients are write-only consumers; any inbound message is discarded and
// only used to detect disconnects.
func (s *eventStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("engine: websocket upgrade failed")
		return
	}

	s.mu.Lock()
	s.clients[conn] = &sync.Mutex{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// relay is the broadcaster.Handler: it marshals the event once and fans it
// out to every connected client.
func (s *eventStream) relay(ctx context.Context, e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		s.logger.Warn().Err(err).Msg("engine: failed to marshal event for stream")
		return
	}

	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.clients))
	mutexes := make([]*sync.Mutex, 0, len(s.clients))
	for conn, mu := range s.clients {
		conns = append(conns, conn)
		mutexes = append(mutexes, mu)
	}
	s.mu.Unlock()

	for i, conn := range conns {
		mutexes[i].Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutexes[i].Unlock()
		if err != nil {
			s.logger.Warn().Err(err).Msg("engine: failed to relay event to client")
		}
	}
}

// startEventStreamServer starts a bare HTTP server exposing the event
// stream at /stream. It never competes with the out-of-scope UI facade
// (§1 Non-goals): there is no other route on this mux.
func startEventStreamServer(addr string, stream *eventStream, logger arbor.ILogger) {
	mux := http.NewServeMux()
	mux.Handle("/stream", stream)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Warn().Err(err).Msg("engine: event stream server stopped")
		}
	}()
}
