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

// Package controller is the level-triggered reconciler: given an
// observed XlineCluster it builds the desired Service, StatefulSet, and
// optional backup CronJob (pkg/builder) and applies each under
// server-side-apply semantics (pkg/resource), in that order. The
// reconciler itself is stateless between invocations — all state lives
// on the API server.
package controller

import (
	"context"

	"github.com/cockroachdb/errors"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	xlinev1 "github.com/bsbds/xline-operator-go/pkg/apis/xlinecluster/v1"
	"github.com/bsbds/xline-operator-go/pkg/builder"
	"github.com/bsbds/xline-operator-go/pkg/resource"
)

// ErrKubeAPI wraps a non-NotFound Kubernetes API error encountered while
// applying a child resource.
var ErrKubeAPI = errors.New("kubernetes api error")

// Reconciler reconciles an XlineCluster.
type Reconciler struct {
	client.Client
	Scheme *runtime.Scheme

	FieldManager  string
	ClusterSuffix string
}

// Reconcile implements reconcile.Reconciler.
func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	var cluster xlinev1.XlineCluster
	if err := r.Get(ctx, req.NamespacedName, &cluster); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, errors.Wrapf(ErrKubeAPI, "fetching XlineCluster: %v", err)
	}

	if cluster.Namespace == "" || cluster.Name == "" {
		return ctrl.Result{}, builder.ErrMissingObject
	}

	persister := resource.NewKubePersister(cluster.Namespace, r.Client, r.FieldManager)

	svc, err := builder.BuildHeadlessService(&cluster)
	if err != nil {
		return ctrl.Result{}, err
	}
	if err := r.applyOwned(ctx, persister, &cluster, svc); err != nil {
		return ctrl.Result{}, err
	}

	sts, err := builder.BuildStatefulSet(&cluster)
	if err != nil {
		return ctrl.Result{}, err
	}
	if err := r.applyOwned(ctx, persister, &cluster, sts); err != nil {
		return ctrl.Result{}, err
	}

	cronJob, err := builder.BuildBackupCronJob(&cluster, r.ClusterSuffix)
	if err != nil {
		return ctrl.Result{}, err
	}
	if cronJob != nil {
		if err := r.applyOwned(ctx, persister, &cluster, cronJob); err != nil {
			return ctrl.Result{}, err
		}
	}

	log.V(1).Info("reconciled XlineCluster", "name", cluster.Name, "namespace", cluster.Namespace)
	return ctrl.Result{}, nil
}

func (r *Reconciler) applyOwned(ctx context.Context, persister *resource.KubePersister, cluster *xlinev1.XlineCluster, obj client.Object) error {
	if err := ctrl.SetControllerReference(cluster, obj, r.Scheme); err != nil {
		return errors.Wrap(err, "setting controller reference")
	}
	if err := persister.Persist(ctx, obj); err != nil {
		return errors.Wrapf(ErrKubeAPI, "applying %T %s/%s: %v", obj, cluster.Namespace, cluster.Name, err)
	}
	return nil
}

// SetupWithManager registers the reconciler with mgr, watching
// XlineCluster and its three owned child kinds.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&xlinev1.XlineCluster{}).
		Owns(&corev1.Service{}).
		Owns(&appsv1.StatefulSet{}).
		Owns(&batchv1.CronJob{}).
		Complete(r)
}
