// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package monitor

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// Handler serves the JSON API, the websocket feed and, when staticDir is
// set, the static front end.
func Handler(store *Store, hub *Hub, staticDir string, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, store.Messages(), log)
	})
	mux.HandleFunc("GET /api/anchors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, store.Anchors(), log)
	})
	mux.HandleFunc("GET /api/positions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, store.Positions(), log)
	})
	mux.Handle("GET /ws", hub)

	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func writeJSON(w http.ResponseWriter, v any, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("json encode error")
	}
}
