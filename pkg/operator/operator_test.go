package operator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	xlinev1 "github.com/bsbds/xline-operator-go/pkg/apis/xlinecluster/v1"
	"github.com/bsbds/xline-operator-go/pkg/config"
	"github.com/bsbds/xline-operator-go/pkg/heartbeat"
	"github.com/bsbds/xline-operator-go/pkg/testutils"
)

func TestReadClusterSizeReturnsObservedSize(t *testing.T) {
	cluster := &xlinev1.XlineCluster{
		ObjectMeta: metav1.ObjectMeta{Name: "my-cluster", Namespace: "xline-system"},
		Spec:       xlinev1.XlineClusterSpec{Size: 5},
	}
	scheme := testutils.InitScheme(t)
	cl := testutils.NewFakeClient(scheme, cluster)

	o := New(config.Config{Namespace: "xline-system"}, logr.Discard())
	require.Equal(t, int32(5), o.readClusterSize(context.Background(), cl))
}

func TestReadClusterSizeFallsBackWhenAbsent(t *testing.T) {
	scheme := testutils.InitScheme(t)
	cl := testutils.NewFakeClient(scheme)

	o := New(config.Config{Namespace: "xline-system"}, logr.Discard())
	require.Equal(t, int32(fallbackClusterSize), o.readClusterSize(context.Background(), cl))
}

func TestPodDeleterDeletesNamedPod(t *testing.T) {
	pod := &corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "member-0", Namespace: "xline-system"}}
	scheme := testutils.InitScheme(t)
	cl := testutils.NewFakeClient(scheme, pod)

	d := podDeleter{client: cl, namespace: "xline-system"}
	require.NoError(t, d.DeletePod(context.Background(), "member-0"))

	err := cl.Get(context.Background(), types.NamespacedName{Namespace: "xline-system", Name: "member-0"}, &corev1.Pod{})
	require.Error(t, err)
}

func TestStartIngestionMountsHeartbeatHandler(t *testing.T) {
	o := New(config.Config{ListenAddr: "127.0.0.1:0"}, logr.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reports := make(chan heartbeat.Report, 1)
	srv := o.startIngestion(ctx, reports)
	require.NotNil(t, srv.Handler)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/status", strings.NewReader(`{"id":"a","timestamp":1,"reachable_ids":["a"]}`))
	srv.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	select {
	case got := <-reports:
		require.Equal(t, "a", got.ID)
	case <-time.After(time.Second):
		t.Fatal("report was not forwarded to the channel")
	}
}

func TestNewSchemeRegistersXlineClusterAndCRDTypes(t *testing.T) {
	scheme, err := newScheme()
	require.NoError(t, err)

	require.True(t, scheme.Recognizes(xlinev1.GroupVersion.WithKind(xlinev1.Kind)))
	require.True(t, scheme.Recognizes(corev1.SchemeGroupVersion.WithKind("Pod")))
	require.True(t, scheme.Recognizes(apiextensionsv1.SchemeGroupVersion.WithKind("CustomResourceDefinition")))
}

func TestStartIngestionStopsListeningOnCancel(t *testing.T) {
	o := New(config.Config{ListenAddr: "127.0.0.1:0"}, logr.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	reports := make(chan heartbeat.Report, 1)
	srv := o.startIngestion(ctx, reports)
	defer srv.Close()

	cancel()
	time.Sleep(20 * time.Millisecond)

	// A server closed twice returns nil both times; the assertion here is
	// simply that the shutdown goroutine already tore it down without
	// panicking concurrently with this explicit Close in the deferred call.
	require.NoError(t, srv.Close())
}
