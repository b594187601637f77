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

// Package consts holds process-wide constants shared between the operator
// and the sidecar wire contract. Their values must not diverge between
// builds of either side.
package consts

import "time"

const (
	// DefaultDataDir is the xline data directory mounted in the workload
	// container. User-supplied volume mounts may not shadow it.
	DefaultDataDir = "/usr/local/xline/data-dir"

	// DefaultBackupDir is the backup volume mount path. User-supplied volume
	// mounts may not shadow it.
	DefaultBackupDir = "/xline-backup"

	// OperatorMonitorRoute is the route the ingestion endpoint listens on
	// for sidecar heartbeat reports.
	OperatorMonitorRoute = "/status"

	// SidecarBackupRoute is the route the backup cron job hits on a
	// randomly chosen member.
	SidecarBackupRoute = "/backup"

	// SidecarHealthRoute is the route each sidecar exposes for peer health
	// probes.
	SidecarHealthRoute = "/health"

	// FieldManager is the field-manager identity the operator uses for all
	// server-side-apply patches.
	FieldManager = "xline-operator"

	// CRDEstablishTimeout bounds how long the CRD lifecycle manager waits
	// for the Established condition after a create or patch.
	CRDEstablishTimeout = 20 * time.Second
)
