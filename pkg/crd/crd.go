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

// Package crd manages the lifecycle of the XlineCluster CustomResourceDefinition:
// building its manifest by hand (no controller-gen in this tree), deciding
// whether the cluster's installed copy needs creating, upgrading, or left
// alone, and waiting for the API server to establish it before the
// reconciler starts watching.
package crd

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	xlinev1 "github.com/bsbds/xline-operator-go/pkg/apis/xlinecluster/v1"
	"github.com/bsbds/xline-operator-go/pkg/consts"
	"github.com/bsbds/xline-operator-go/pkg/kube"
	"github.com/bsbds/xline-operator-go/pkg/version"
)

// Name is the CRD's cluster-scoped object name: <plural>.<group>.
const Name = "xlineclusters." + xlinev1.GroupName

const plural = "xlineclusters"

// ErrIncompatibleVersion is returned when the cluster already carries a
// newer schema version than this build embeds and the caller has not
// opted into a forced overwrite.
var ErrIncompatibleVersion = errors.New("installed XlineCluster CRD schema is newer than this operator build")

// Manager owns the embedded XlineCluster CRD definition and reconciles it
// against whatever is installed on the API server.
type Manager struct {
	client       client.Client
	fieldManager string
	forceCreate  bool
}

// NewManager constructs a Manager. forceCreate mirrors the operator's
// --create-crd flag: when true, a version mismatch is resolved by
// overwriting rather than failing.
func NewManager(cl client.Client, fieldManager string, forceCreate bool) *Manager {
	return &Manager{client: cl, fieldManager: fieldManager, forceCreate: forceCreate}
}

// Ensure brings the installed CRD in line with this build's embedded
// schema version and blocks until the API server reports it Established.
func (m *Manager) Ensure(ctx context.Context) error {
	desired := BuildDefinition()

	existing := &apiextensionsv1.CustomResourceDefinition{}
	err := m.client.Get(ctx, types.NamespacedName{Name: Name}, existing)
	switch {
	case k8serrors.IsNotFound(err):
		if err := kube.Apply(ctx, m.client, desired, m.fieldManager); err != nil {
			return errors.Wrap(err, "creating XlineCluster CRD")
		}
	case err != nil:
		return errors.Wrap(err, "fetching XlineCluster CRD")
	default:
		if err := m.reconcileExisting(ctx, existing, desired); err != nil {
			return err
		}
	}

	return m.awaitEstablished(ctx)
}

func (m *Manager) reconcileExisting(ctx context.Context, existing, desired *apiextensionsv1.CustomResourceDefinition) error {
	ours, err := version.Parse(xlinev1.SchemaVersion)
	if err != nil {
		return errors.Wrap(err, "parsing this build's schema version")
	}

	installed, err := maxInstalledVersion(existing)
	if err != nil {
		return errors.Wrap(err, "parsing installed CRD's schema versions")
	}

	switch {
	case ours.Greater(installed):
		// Our build is newer: apply unconditionally.
	case ours.Equal(installed):
		// Nothing to do.
		return nil
	default:
		if !m.forceCreate {
			return errors.Wrapf(ErrIncompatibleVersion, "installed=%s embedded=%s", installed, ours)
		}
	}

	if err := kube.Apply(ctx, m.client, desired, m.fieldManager); err != nil {
		return errors.Wrap(err, "updating XlineCluster CRD")
	}
	return nil
}

func maxInstalledVersion(crd *apiextensionsv1.CustomResourceDefinition) (version.SchemaVersion, error) {
	var max version.SchemaVersion
	seen := false
	for _, v := range crd.Spec.Versions {
		parsed, err := version.Parse(v.Name)
		if err != nil {
			// An installed version this build doesn't recognize as a
			// "v<N>" schema tag; skip it rather than fail the whole check.
			continue
		}
		if !seen || parsed.Greater(max) {
			max = parsed
			seen = true
		}
	}
	if !seen {
		return version.SchemaVersion{}, errors.New("no recognizable schema version on installed CRD")
	}
	return max, nil
}

func (m *Manager) awaitEstablished(ctx context.Context) error {
	return kube.WaitForCondition(ctx, consts.CRDEstablishTimeout, func(ctx context.Context) (bool, error) {
		crd := &apiextensionsv1.CustomResourceDefinition{}
		if err := m.client.Get(ctx, types.NamespacedName{Name: Name}, crd); err != nil {
			return false, err
		}
		for _, cond := range crd.Status.Conditions {
			if cond.Type == apiextensionsv1.Established && cond.Status == apiextensionsv1.ConditionTrue {
				return true, nil
			}
		}
		return false, nil
	})
}

// BuildDefinition constructs this build's XlineCluster CRD manifest. The
// schema is deliberately loose (x-kubernetes-preserve-unknown-fields)
// since there is no controller-gen pass in this tree to emit a precise
// OpenAPI v3 schema. Only spec.size (minimum 1) and the presence of size
// and container are checked by the schema; ports and mount paths are
// validated in pkg/builder at reconcile time instead.
func BuildDefinition() *apiextensionsv1.CustomResourceDefinition {
	preserveUnknown := true
	minSize := float64(1)

	return &apiextensionsv1.CustomResourceDefinition{
		TypeMeta: metav1.TypeMeta{
			Kind:       "CustomResourceDefinition",
			APIVersion: apiextensionsv1.SchemeGroupVersion.String(),
		},
		ObjectMeta: metav1.ObjectMeta{Name: Name},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: xlinev1.GroupName,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Plural:   plural,
				Singular: "xlinecluster",
				Kind:     xlinev1.Kind,
				ListKind: xlinev1.Kind + "List",
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{
				{
					Name:    xlinev1.SchemaVersion,
					Served:  true,
					Storage: true,
					Schema: &apiextensionsv1.CustomResourceValidation{
						OpenAPIV3Schema: &apiextensionsv1.JSONSchemaProps{
							Type: "object",
							Properties: map[string]apiextensionsv1.JSONSchemaProps{
								"spec": {
									Type:                   "object",
									XPreserveUnknownFields: &preserveUnknown,
									Properties: map[string]apiextensionsv1.JSONSchemaProps{
										"size": {
											Type:    "integer",
											Minimum: &minSize,
										},
									},
									Required: []string{"size", "container"},
								},
							},
						},
					},
				},
			},
		},
	}
}

func init() {
	// Guard against an accidental name mismatch between the CRD's plural
	// form and xlinev1.GroupName going out of sync silently.
	if Name != plural+"."+xlinev1.GroupName {
		panic(fmt.Sprintf("crd: Name %q does not match plural %q for group %s", Name, plural, xlinev1.GroupName))
	}
}
