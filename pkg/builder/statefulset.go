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

package builder

import (
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	xlinev1 "github.com/bsbds/xline-operator-go/pkg/apis/xlinecluster/v1"
	"github.com/bsbds/xline-operator-go/pkg/consts"
)

// maxUnavailableRollout caps in-flight pod restarts during a rolling
// update at half the cluster, keeping a quorum-preserving majority of
// xline nodes serving at all times.
const maxUnavailableRollout = "50%"

// BuildStatefulSet builds the StatefulSet running the cluster's xline
// nodes. The backup and data directories, when configured, are mounted
// at fixed reserved paths; the workload container's own volume mounts
// must not collide with either.
func BuildStatefulSet(cluster *xlinev1.XlineCluster) (*appsv1.StatefulSet, error) {
	container := *cluster.Spec.Container.DeepCopy()

	if err := checkReservedMountPaths(container.VolumeMounts); err != nil {
		return nil, err
	}

	pvcs, err := extractPVCs(cluster)
	if err != nil {
		return nil, err
	}

	if cluster.Spec.Backup != nil && cluster.Spec.Backup.Storage.Kind == xlinev1.StorageKindPVC {
		name, err := backupPVCName(cluster)
		if err != nil {
			return nil, err
		}
		container.VolumeMounts = append(container.VolumeMounts, corev1.VolumeMount{
			Name:      name,
			MountPath: consts.DefaultBackupDir,
		})
	}

	if cluster.Spec.Data != nil {
		name, err := dataPVCName(cluster)
		if err != nil {
			return nil, err
		}
		container.VolumeMounts = append(container.VolumeMounts, corev1.VolumeMount{
			Name:      name,
			MountPath: consts.DefaultDataDir,
		})
	}

	maxUnavailable := intstr.FromString(maxUnavailableRollout)
	sts := &appsv1.StatefulSet{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "apps/v1",
			Kind:       "StatefulSet",
		},
		ObjectMeta: objectMeta(cluster, cluster.Name),
		Spec: appsv1.StatefulSetSpec{
			Replicas:             &cluster.Spec.Size,
			ServiceName:          cluster.Name,
			Selector:             &metav1.LabelSelector{MatchLabels: appLabels(cluster.Name)},
			VolumeClaimTemplates: pvcs,
			UpdateStrategy: appsv1.StatefulSetUpdateStrategy{
				Type: appsv1.RollingUpdateStatefulSetStrategyType,
				RollingUpdate: &appsv1.RollingUpdateStatefulSetStrategy{
					MaxUnavailable: &maxUnavailable,
				},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: appLabels(cluster.Name)},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{container},
				},
			},
		},
	}
	sts.Annotations = map[string]string{ContentHashAnnotation: ContentHash(sts.Spec)}
	return sts, nil
}

func checkReservedMountPaths(mounts []corev1.VolumeMount) error {
	for _, m := range mounts {
		if hasReservedPrefix(m.MountPath) {
			return cannotMount(m.MountPath)
		}
	}
	return nil
}

func hasReservedPrefix(path string) bool {
	return strings.HasPrefix(path, consts.DefaultBackupDir) || strings.HasPrefix(path, consts.DefaultDataDir)
}

// extractPVCs orders volume claim templates: the backup PVC first (if
// backup storage is PVC-backed), then the data PVC (if present), then
// any user-supplied claims, matching the mount-path append order above.
func extractPVCs(cluster *xlinev1.XlineCluster) ([]corev1.PersistentVolumeClaim, error) {
	var pvcs []corev1.PersistentVolumeClaim

	if cluster.Spec.Backup != nil && cluster.Spec.Backup.Storage.Kind == xlinev1.StorageKindPVC {
		pvc := cluster.Spec.Backup.Storage.PVC
		if pvc == nil || pvc.Name == "" {
			return nil, missingObject(".spec.backup.storage.pvc.name")
		}
		pvcs = append(pvcs, *pvc.DeepCopy())
	}

	if cluster.Spec.Data != nil {
		if cluster.Spec.Data.Name == "" {
			return nil, missingObject(".spec.data.name")
		}
		pvcs = append(pvcs, *cluster.Spec.Data.DeepCopy())
	}

	pvcs = append(pvcs, cluster.Spec.PVCs...)
	return pvcs, nil
}

func backupPVCName(cluster *xlinev1.XlineCluster) (string, error) {
	pvc := cluster.Spec.Backup.Storage.PVC
	if pvc == nil || pvc.Name == "" {
		return "", missingObject(".spec.backup.storage.pvc.name")
	}
	return pvc.Name, nil
}

func dataPVCName(cluster *xlinev1.XlineCluster) (string, error) {
	if cluster.Spec.Data.Name == "" {
		return "", missingObject(".spec.data.name")
	}
	return cluster.Spec.Data.Name, nil
}
