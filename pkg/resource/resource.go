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

// Package resource provides the small Fetch/Persist abstraction the
// reconciler uses to talk to the API server,
// kept separate from the pure spec-to-object builder so the builder stays
// unit-testable without a client.
package resource

import (
	"context"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/bsbds/xline-operator-go/pkg/kube"
)

// Fetcher reads an object's current state from Kubernetes.
type Fetcher interface {
	Fetch(ctx context.Context, obj client.Object) error
}

// Persister applies an object's desired state to Kubernetes under a
// field-manager identity.
type Persister interface {
	Persist(ctx context.Context, obj client.Object) error
}

// Resource bundles a Fetcher and a Persister scoped to a single namespace.
type Resource struct {
	Fetcher
	Persister
}

// NewKubeResource builds a Resource backed by a live controller-runtime
// client, applying every Persist under fieldManager.
func NewKubeResource(namespace string, cl client.Client, fieldManager string) Resource {
	return Resource{
		Fetcher:   NewKubeFetcher(namespace, cl),
		Persister: NewKubePersister(namespace, cl, fieldManager),
	}
}

// KubeFetcher fetches objects by name within a fixed namespace.
type KubeFetcher struct {
	namespace string
	client.Reader
}

// NewKubeFetcher constructs a KubeFetcher.
func NewKubeFetcher(namespace string, reader client.Reader) *KubeFetcher {
	return &KubeFetcher{namespace: namespace, Reader: reader}
}

// Fetch looks up obj by its own name within the fetcher's namespace and
// populates it in place.
func (f *KubeFetcher) Fetch(ctx context.Context, obj client.Object) error {
	accessor, err := meta.Accessor(obj)
	if err != nil {
		return err
	}
	return f.Reader.Get(ctx, f.makeKey(accessor.GetName()), obj)
}

func (f *KubeFetcher) makeKey(name string) types.NamespacedName {
	return types.NamespacedName{Name: name, Namespace: f.namespace}
}

// KubePersister applies objects via server-side apply under a fixed
// namespace and field manager.
type KubePersister struct {
	namespace    string
	fieldManager string
	client.Client
}

// NewKubePersister constructs a KubePersister.
func NewKubePersister(namespace string, cl client.Client, fieldManager string) *KubePersister {
	return &KubePersister{namespace: namespace, fieldManager: fieldManager, Client: cl}
}

// Persist namespaces obj and applies it, declaring ownership of every
// field it sets.
func (p *KubePersister) Persist(ctx context.Context, obj client.Object) error {
	if err := addNamespace(obj, p.namespace); err != nil {
		return err
	}
	return kube.Apply(ctx, p.Client, obj, p.fieldManager)
}

func addNamespace(obj client.Object, ns string) error {
	accessor, err := meta.Accessor(obj)
	if err != nil {
		return errors.Wrapf(err, "failed to access object's meta information")
	}
	accessor.SetNamespace(ns)
	return nil
}
