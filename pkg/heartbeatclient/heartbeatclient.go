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

// Package heartbeatclient implements the sidecar side of the heartbeat
// contract: probing peer health endpoints and posting the resulting
// report to the operator's ingestion endpoint. It is not started by the
// operator process — the managed store's own sidecar plays this role —
// but it gives tests a realistic way to generate heartbeat.Report
// traffic against pkg/heartbeat.Server instead of hand-building structs.
package heartbeatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/bsbds/xline-operator-go/pkg/consts"
	"github.com/bsbds/xline-operator-go/pkg/heartbeat"
)

// Prober probes a fixed set of peers' health routes and reports which
// ones answered to the operator's ingestion endpoint.
type Prober struct {
	ID           string
	Members      map[string]string // member id -> host:port
	OperatorAddr string            // host:port of the ingestion endpoint

	Client *http.Client
}

// New constructs a Prober with a timeout-bounded HTTP client.
func New(id string, members map[string]string, operatorAddr string, timeout time.Duration) *Prober {
	return &Prober{
		ID:           id,
		Members:      members,
		OperatorAddr: operatorAddr,
		Client:       &http.Client{Timeout: timeout},
	}
}

// Probe GETs every peer's health route and returns a Report naming which
// ones responded, always including the prober's own id.
func (p *Prober) Probe(ctx context.Context) (heartbeat.Report, error) {
	reachable := map[string]bool{p.ID: true}

	for id, addr := range p.Members {
		url := fmt.Sprintf("http://%s%s", addr, consts.SidecarHealthRoute)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return heartbeat.Report{}, errors.Wrapf(err, "building health probe request for %s", id)
		}
		resp, err := p.Client.Do(req)
		if err != nil {
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			reachable[id] = true
		}
	}

	ids := make([]string, 0, len(reachable))
	for id := range reachable {
		ids = append(ids, id)
	}

	return heartbeat.Report{
		ID:           p.ID,
		Timestamp:    uint64(time.Now().Unix()),
		ReachableIDs: ids,
	}, nil
}

// SendHeartbeat posts report to the operator's ingestion endpoint.
func (p *Prober) SendHeartbeat(ctx context.Context, report heartbeat.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "marshaling heartbeat report")
	}

	url := fmt.Sprintf("http://%s%s", p.OperatorAddr, consts.OperatorMonitorRoute)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "building heartbeat request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "sending heartbeat")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return errors.Newf("heartbeat rejected with status %d", resp.StatusCode)
	}
	return nil
}

// Run probes and reports on every tick until ctx is canceled.
func (p *Prober) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report, err := p.Probe(ctx)
			if err != nil {
				return err
			}
			if err := p.SendHeartbeat(ctx, report); err != nil {
				return err
			}
		}
	}
}
