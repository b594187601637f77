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

// Package v1 defines the XlineCluster custom resource: the declarative
// cluster spec this operator reconciles into a headless Service, a
// StatefulSet, and an optional backup CronJob.
package v1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// SchemaVersion is the CRD schema version this build of the operator
// embeds. It is compared against what is installed on the API server by
// pkg/crd at startup.
const SchemaVersion = "v1"

// Kind is the XlineCluster CRD kind string.
const Kind = "XlineCluster"

// +kubebuilder:object:root=true

// XlineCluster is the Schema for the xlineclusters API.
type XlineCluster struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec XlineClusterSpec `json:"spec,omitempty"`
}

// +kubebuilder:object:root=true

// XlineClusterList contains a list of XlineCluster.
type XlineClusterList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []XlineCluster `json:"items"`
}

// XlineClusterSpec is the desired state of an XlineCluster.
type XlineClusterSpec struct {
	// Size is the replica count. Must be >= 1.
	// +kubebuilder:validation:Minimum=1
	Size int32 `json:"size"`

	// Container is the xline workload container. Ports is required and
	// must be non-empty; VolumeMounts may not shadow the reserved data or
	// backup directories.
	Container corev1.Container `json:"container"`

	// Data is an optional persistent volume claim template for the data
	// directory.
	// +optional
	Data *corev1.PersistentVolumeClaim `json:"data,omitempty"`

	// Backup is an optional backup trigger configuration.
	// +optional
	Backup *BackupSpec `json:"backup,omitempty"`

	// PVCs is a list of additional user-supplied volume claim templates,
	// appended after the backup and data claims.
	// +optional
	PVCs []corev1.PersistentVolumeClaim `json:"pvcs,omitempty"`
}

// BackupSpec describes the scheduled backup trigger.
type BackupSpec struct {
	// Cron is the cron schedule string for the backup trigger job.
	Cron string `json:"cron"`

	// Storage selects where the managed service's backup payload lands:
	// either S3 (just a configuration reference) or a PVC the operator
	// mounts into the workload container.
	Storage StorageSpec `json:"storage"`
}

// StorageKind tags which variant of StorageSpec is populated.
type StorageKind string

const (
	// StorageKindS3 selects the S3 storage variant.
	StorageKindS3 StorageKind = "S3"
	// StorageKindPVC selects the PVC storage variant.
	StorageKindPVC StorageKind = "PVC"
)

// StorageSpec is a tagged union: exactly one of S3 or PVC is populated,
// selected by Kind. The builder pattern-matches on Kind rather than using
// interface dispatch, per the operator's design notes.
type StorageSpec struct {
	Kind StorageKind `json:"kind"`

	// +optional
	S3 *S3StorageSpec `json:"s3,omitempty"`

	// +optional
	PVC *corev1.PersistentVolumeClaim `json:"pvc,omitempty"`
}

// S3StorageSpec configures an S3-backed backup destination. The operator
// never talks to S3 itself, and the backup trigger job it builds does not
// read these fields.
type S3StorageSpec struct {
	Path   string `json:"path"`
	Secret string `json:"secret"`
}
