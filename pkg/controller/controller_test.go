package controller_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	xlinev1 "github.com/bsbds/xline-operator-go/pkg/apis/xlinecluster/v1"
	"github.com/bsbds/xline-operator-go/pkg/builder"
	"github.com/bsbds/xline-operator-go/pkg/controller"
	"github.com/bsbds/xline-operator-go/pkg/testutils"
)

func baseCluster() *xlinev1.XlineCluster {
	return &xlinev1.XlineCluster{
		ObjectMeta: metav1.ObjectMeta{Name: "my-cluster", Namespace: "xline-system", UID: "abc-123"},
		Spec: xlinev1.XlineClusterSpec{
			Size: 3,
			Container: corev1.Container{
				Name:  "xline",
				Image: "xline:latest",
				Ports: []corev1.ContainerPort{{Name: "xline", ContainerPort: 2379}},
			},
		},
	}
}

func newReconciler(t *testing.T, objs ...client.Object) (*controller.Reconciler, client.Client) {
	scheme := testutils.InitScheme(t)
	cl := testutils.NewFakeClient(scheme, objs...)
	return &controller.Reconciler{
		Client:        cl,
		Scheme:        scheme,
		FieldManager:  "xline-operator",
		ClusterSuffix: "cluster.local",
	}, cl
}

func TestReconcileCreatesServiceAndStatefulSet(t *testing.T) {
	cluster := baseCluster()
	r, cl := newReconciler(t, cluster)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: cluster.Namespace, Name: cluster.Name}})
	require.NoError(t, err)

	var svc corev1.Service
	require.NoError(t, cl.Get(context.Background(), types.NamespacedName{Namespace: cluster.Namespace, Name: cluster.Name}, &svc))
	require.Equal(t, corev1.ClusterIPNone, svc.Spec.ClusterIP)

	var sts appsv1.StatefulSet
	require.NoError(t, cl.Get(context.Background(), types.NamespacedName{Namespace: cluster.Namespace, Name: cluster.Name}, &sts))
	require.Equal(t, int32(3), *sts.Spec.Replicas)

	var jobs batchv1.CronJobList
	require.NoError(t, cl.List(context.Background(), &jobs, client.InNamespace(cluster.Namespace)))
	require.Empty(t, jobs.Items, "no backup configured, no cron job expected")
}

func TestReconcileCreatesBackupCronJob(t *testing.T) {
	cluster := baseCluster()
	cluster.Spec.Backup = &xlinev1.BackupSpec{
		Cron:    "0 3 * * *",
		Storage: xlinev1.StorageSpec{Kind: xlinev1.StorageKindS3, S3: &xlinev1.S3StorageSpec{Path: "p", Secret: "s"}},
	}
	r, cl := newReconciler(t, cluster)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: cluster.Namespace, Name: cluster.Name}})
	require.NoError(t, err)

	var job batchv1.CronJob
	require.NoError(t, cl.Get(context.Background(), types.NamespacedName{Namespace: cluster.Namespace, Name: cluster.Name}, &job))
	require.Equal(t, "0 3 * * *", job.Spec.Schedule)
}

func TestReconcileIsIdempotent(t *testing.T) {
	cluster := baseCluster()
	r, cl := newReconciler(t, cluster)
	req := ctrl.Request{NamespacedName: types.NamespacedName{Namespace: cluster.Namespace, Name: cluster.Name}}

	_, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	var first appsv1.StatefulSet
	require.NoError(t, cl.Get(context.Background(), req.NamespacedName, &first))

	_, err = r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	var second appsv1.StatefulSet
	require.NoError(t, cl.Get(context.Background(), req.NamespacedName, &second))
	require.Equal(t, first.Spec, second.Spec)
}

func TestReconcileSurfacesValidationError(t *testing.T) {
	cluster := baseCluster()
	cluster.Spec.Container.VolumeMounts = []corev1.VolumeMount{
		{Name: "oops", MountPath: "/usr/local/xline/data-dir/nested"},
	}
	r, cl := newReconciler(t, cluster)
	req := ctrl.Request{NamespacedName: types.NamespacedName{Namespace: cluster.Namespace, Name: cluster.Name}}

	_, err := r.Reconcile(context.Background(), req)
	require.ErrorIs(t, err, builder.ErrCannotMount)

	var sts appsv1.StatefulSet
	err = cl.Get(context.Background(), req.NamespacedName, &sts)
	require.Error(t, err, "statefulset must not be applied when validation fails")
}

func TestReconcileIgnoresMissingCluster(t *testing.T) {
	r, _ := newReconciler(t)
	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "xline-system", Name: "gone"}})
	require.NoError(t, err)
}
