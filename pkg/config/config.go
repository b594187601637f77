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

// Package config holds the operator's command-line configuration surface
// and its cobra flag registration.
package config

import (
	"time"

	"github.com/spf13/cobra"
)

// Config is the fully parsed set of options the operator process runs
// with.
type Config struct {
	// Namespace is the single namespace to watch. Ignored when
	// ClusterWide is set.
	Namespace string
	// ClusterWide, when set, watches all namespaces and ignores
	// Namespace.
	ClusterWide bool
	// CreateCRD forces a merge-patch of the embedded CRD definition even
	// when a strictly newer version is already installed.
	CreateCRD bool
	// ClusterSuffix is the DNS suffix used to build pod-stable names for
	// the backup trigger job.
	ClusterSuffix string
	// ListenAddr is the socket the heartbeat ingestion endpoint binds.
	ListenAddr string
	// HeartbeatPeriod is the aggregator's recency window.
	HeartbeatPeriod time.Duration
	// UnreachableThreshold bounds failed recovery attempts before the
	// aggregator gives up on a member.
	UnreachableThreshold int
}

// RegisterFlags attaches the operator's flags to cmd's flag set, with the
// defaults named in the operator's configuration contract.
func RegisterFlags(cmd *cobra.Command, cfg *Config) {
	cmd.PersistentFlags().StringVar(&cfg.Namespace, "namespace", "default", "single namespace to watch")
	cmd.PersistentFlags().BoolVar(&cfg.ClusterWide, "cluster-wide", false, "watch all namespaces, ignoring --namespace")
	cmd.PersistentFlags().BoolVar(&cfg.CreateCRD, "create-crd", false, "force-merge the embedded CRD even when a newer version is installed")
	cmd.PersistentFlags().StringVar(&cfg.ClusterSuffix, "cluster-suffix", "cluster.local", "DNS suffix for pod-stable names")
	cmd.PersistentFlags().StringVar(&cfg.ListenAddr, "listen-addr", ":8080", "socket for the heartbeat ingestion endpoint")
	cmd.PersistentFlags().DurationVar(&cfg.HeartbeatPeriod, "heartbeat-period", 10*time.Second, "recency window for accepted heartbeat reports")
	cmd.PersistentFlags().IntVar(&cfg.UnreachableThreshold, "unreachable-thresh", 3, "failed recovery attempts before the aggregator gives up on a member")
}
