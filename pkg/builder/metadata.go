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

// Package builder turns an XlineCluster spec into the child objects the
// controller applies: a headless Service, a StatefulSet, and an optional
// backup CronJob. Every function here is a pure spec-to-object mapping —
// no client, no I/O — so the decisions (port extraction, volume mount
// layout, PVC ordering) stay unit-testable without a cluster.
package builder

import (
	"fmt"

	"github.com/mitchellh/hashstructure/v2"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	xlinev1 "github.com/bsbds/xline-operator-go/pkg/apis/xlinecluster/v1"
)

// ContentHashAnnotation records the hash of the spec an applied object was
// built from. The reconciler does not read it back: every reconcile applies
// each object regardless of the hash.
const ContentHashAnnotation = xlinev1.GroupName + "/content-hash"

// AppLabel is the label selecting an XlineCluster's pods, services, and
// volume claim templates.
const AppLabel = "app"

func appLabels(name string) map[string]string {
	return map[string]string{AppLabel: name}
}

func ownerReference(cluster *xlinev1.XlineCluster) metav1.OwnerReference {
	blockOwnerDeletion := true
	controller := true
	return metav1.OwnerReference{
		APIVersion:         xlinev1.GroupVersion.String(),
		Kind:               xlinev1.Kind,
		Name:               cluster.Name,
		UID:                cluster.UID,
		Controller:         &controller,
		BlockOwnerDeletion: &blockOwnerDeletion,
	}
}

func objectMeta(cluster *xlinev1.XlineCluster, name string) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Name:            name,
		Namespace:       cluster.Namespace,
		Labels:          appLabels(cluster.Name),
		OwnerReferences: []metav1.OwnerReference{ownerReference(cluster)},
	}
}

// ContentHash computes a stable hash over spec, suitable for the
// content-hash annotation. It never fails on well-formed Kubernetes API
// objects; an error here means the value passed in isn't hashable and is
// a programmer error.
func ContentHash(spec interface{}) string {
	hash, err := hashstructure.Hash(spec, hashstructure.FormatV2, nil)
	if err != nil {
		panic(fmt.Sprintf("builder: unhashable spec: %v", err))
	}
	return fmt.Sprintf("%d", hash)
}
