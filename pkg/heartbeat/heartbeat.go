/*
Copyright 2021 The Cockroach Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package heartbeat is the boundary adapter between the sidecar agents'
// HTTP posts and the liveness aggregator: it deserializes a Report,
// enqueues it onto an unbounded channel, and acknowledges receipt. It
// never blocks on the aggregator — the channel absorbs bursts.
package heartbeat

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Report is the wire-level unit a sidecar posts to /status.
type Report struct {
	ID           string   `json:"id"`
	Timestamp    uint64   `json:"timestamp"`
	ReachableIDs []string `json:"reachable_ids"`
}

// Server accepts heartbeat posts and forwards them onto Reports. It owns
// no other state: the aggregator goroutine is the sole consumer.
type Server struct {
	Reports chan<- Report
}

// NewServer constructs a Server that forwards decoded reports onto ch.
func NewServer(ch chan<- Report) *Server {
	return &Server{Reports: ch}
}

// Handler returns the net/http handler to mount at the ingestion route.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveHTTP)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var report Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		logrus.WithError(err).Warn("heartbeat: discarding malformed report")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.Reports <- report
	w.WriteHeader(http.StatusNoContent)
}

// AttachTo mounts the ingestion handler at route on mux.
func (s *Server) AttachTo(mux *http.ServeMux, route string) {
	mux.Handle(route, s.Handler())
}
