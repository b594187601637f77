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

// Package operator is the process supervisor: it wires the CRD lifecycle
// manager, the heartbeat ingestion endpoint, the liveness aggregator, and
// the reconciler manager together and installs two-stage graceful
// shutdown.
package operator

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"

	xlinev1 "github.com/bsbds/xline-operator-go/pkg/apis/xlinecluster/v1"
	"github.com/bsbds/xline-operator-go/pkg/aggregator"
	"github.com/bsbds/xline-operator-go/pkg/config"
	"github.com/bsbds/xline-operator-go/pkg/consts"
	"github.com/bsbds/xline-operator-go/pkg/controller"
	"github.com/bsbds/xline-operator-go/pkg/crd"
	"github.com/bsbds/xline-operator-go/pkg/heartbeat"
)

// fallbackClusterSize is used when no XlineCluster can be read at
// startup, so the aggregator still has a usable majority.
const fallbackClusterSize = 2

// podDeleter adapts a controller-runtime client to aggregator.PodDeleter.
type podDeleter struct {
	client    client.Client
	namespace string
}

func (d podDeleter) DeletePod(ctx context.Context, id string) error {
	pod := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: id, Namespace: d.namespace}}
	if err := d.client.Delete(ctx, pod); err != nil {
		return errors.Wrapf(err, "deleting unreachable pod %s/%s", d.namespace, id)
	}
	return nil
}

// Operator owns the operator process's top-level lifecycle.
type Operator struct {
	cfg config.Config
	log logr.Logger
}

// New constructs an Operator from its fully parsed configuration.
func New(cfg config.Config, log logr.Logger) *Operator {
	return &Operator{cfg: cfg, log: log}
}

// Run starts every subsystem and blocks until the controller manager
// exits, a fatal startup error occurs, or a second shutdown signal
// arrives while the manager is still stopping after the first.
func (o *Operator) Run(ctx context.Context) error {
	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return errors.Wrap(err, "loading kubeconfig")
	}

	scheme, err := newScheme()
	if err != nil {
		return errors.Wrap(err, "building runtime scheme")
	}

	// The CRD manager runs before mgr.Start, so it must not go through the
	// manager's cache-backed client: reads against an unstarted informer
	// cache fail with "the cache is not started". A direct client talks to
	// the API server right away.
	bootstrapClient, err := client.New(restConfig, client.Options{Scheme: scheme})
	if err != nil {
		return errors.Wrap(err, "constructing bootstrap client")
	}

	crdMgr := crd.NewManager(bootstrapClient, consts.FieldManager, o.cfg.CreateCRD)
	if err := crdMgr.Ensure(ctx); err != nil {
		return errors.Wrap(err, "ensuring XlineCluster CRD")
	}

	mgr, err := ctrl.NewManager(restConfig, o.managerOptions(scheme))
	if err != nil {
		return errors.Wrap(err, "constructing controller manager")
	}

	reconciler := &controller.Reconciler{
		Client:        mgr.GetClient(),
		Scheme:        mgr.GetScheme(),
		FieldManager:  consts.FieldManager,
		ClusterSuffix: o.cfg.ClusterSuffix,
	}
	if err := reconciler.SetupWithManager(mgr); err != nil {
		return errors.Wrap(err, "registering reconciler")
	}

	firstSignal, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	size := o.readClusterSize(firstSignal, mgr.GetAPIReader())

	queue := heartbeat.NewQueue()
	defer queue.Close()
	ingestServer := o.startIngestion(firstSignal, queue.In())

	deleter := podDeleter{client: mgr.GetClient(), namespace: o.cfg.Namespace}
	agg := aggregator.New(
		aggregator.Majority(size),
		aggregator.Config{HeartbeatPeriod: o.cfg.HeartbeatPeriod, UnreachableThreshold: o.cfg.UnreachableThreshold},
		deleter,
		o.log,
	)
	go agg.Run(firstSignal, queue.Out())

	errCh := make(chan error, 1)
	go func() { errCh <- mgr.Start(firstSignal) }()

	select {
	case err := <-errCh:
		_ = ingestServer.Close()
		return err
	case <-firstSignal.Done():
		o.log.Info("received shutdown signal, stopping ingestion endpoint and controller loop")
		_ = ingestServer.Close()

		secondSignal, stopSecond := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stopSecond()

		select {
		case err := <-errCh:
			return err
		case <-secondSignal.Done():
			o.log.Info("received second shutdown signal, aborting immediately")
			return nil
		}
	}
}

// readClusterSize reads the observed cluster's spec.size once at
// startup, per the aggregator's bootstrap contract. A read failure or an
// empty list falls back to fallbackClusterSize rather than blocking
// startup on a resource that may not exist yet.
func (o *Operator) readClusterSize(ctx context.Context, reader client.Reader) int32 {
	var list xlinev1.XlineClusterList
	opts := []client.ListOption{}
	if !o.cfg.ClusterWide {
		opts = append(opts, client.InNamespace(o.cfg.Namespace))
	}

	if err := reader.List(ctx, &list, opts...); err != nil || len(list.Items) == 0 {
		o.log.Info("no XlineCluster found at startup, using fallback size for aggregator majority", "fallback", fallbackClusterSize)
		return fallbackClusterSize
	}
	return list.Items[0].Spec.Size
}

func (o *Operator) startIngestion(ctx context.Context, reports chan<- heartbeat.Report) *http.Server {
	mux := http.NewServeMux()
	heartbeat.NewServer(reports).AttachTo(mux, consts.OperatorMonitorRoute)

	srv := &http.Server{Addr: o.cfg.ListenAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			o.log.Error(err, "ingestion endpoint stopped unexpectedly")
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	return srv
}

func (o *Operator) managerOptions(scheme *runtime.Scheme) ctrl.Options {
	opts := ctrl.Options{Scheme: scheme}
	if !o.cfg.ClusterWide {
		opts.Cache.DefaultNamespaces = map[string]cache.Config{o.cfg.Namespace: {}}
	}
	return opts
}

// newScheme builds the runtime.Scheme this operator's manager and
// bootstrap client run with: the built-in Kubernetes types, the
// apiextensions types (for the CRD lifecycle manager), and the
// XlineCluster CRD's own types. client-go's global default scheme carries
// neither, which would leave the reconciler unable to watch XlineCluster
// and the CRD manager unable to read CustomResourceDefinition objects.
func newScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, err
	}
	if err := apiextensionsv1.AddToScheme(scheme); err != nil {
		return nil, err
	}
	if err := xlinev1.AddToScheme(scheme); err != nil {
		return nil, err
	}
	return scheme, nil
}
