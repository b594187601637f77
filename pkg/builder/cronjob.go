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
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/robfig/cron"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	xlinev1 "github.com/bsbds/xline-operator-go/pkg/apis/xlinecluster/v1"
	"github.com/bsbds/xline-operator-go/pkg/consts"
)

// BuildBackupCronJob builds the CronJob that periodically pokes a random
// cluster member's backup endpoint. It returns nil, nil when the cluster
// has no backup configured: the caller is expected to skip applying it
// rather than treat a nil result as an error.
func BuildBackupCronJob(cluster *xlinev1.XlineCluster, clusterSuffix string) (*batchv1.CronJob, error) {
	if cluster.Spec.Backup == nil {
		return nil, nil
	}

	schedule := cluster.Spec.Backup.Cron
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, errors.Wrapf(err, "invalid backup cron schedule %q", schedule)
	}

	forbid := batchv1.ForbidConcurrent
	onFailure := corev1.RestartPolicyOnFailure
	pullIfNotPresent := corev1.PullIfNotPresent

	job := &batchv1.CronJob{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "batch/v1",
			Kind:       "CronJob",
		},
		ObjectMeta: objectMeta(cluster, cluster.Name),
		Spec: batchv1.CronJobSpec{
			Schedule:          schedule,
			ConcurrencyPolicy: forbid,
			JobTemplate: batchv1.JobTemplateSpec{
				Spec: batchv1.JobSpec{
					Template: corev1.PodTemplateSpec{
						Spec: corev1.PodSpec{
							RestartPolicy: onFailure,
							Containers: []corev1.Container{
								{
									Name:            cluster.Name + "-backup-cronjob",
									Image:           "curlimages/curl",
									ImagePullPolicy: pullIfNotPresent,
									Command:         []string{"/bin/sh", "-ecx"},
									Args:            []string{triggerBackupCommand(cluster, clusterSuffix)},
								},
							},
						},
					},
				},
			},
		},
	}
	job.Annotations = map[string]string{ContentHashAnnotation: ContentHash(job.Spec)}
	return job, nil
}

// triggerBackupCommand picks a random member of the headless service by
// ordinal and curls its backup route, spreading backup load across the
// cluster over time instead of always hitting the same pod.
func triggerBackupCommand(cluster *xlinev1.XlineCluster, clusterSuffix string) string {
	return fmt.Sprintf(
		"curl %s-$((RANDOM %% %d)).%s.%s.svc.%s%s",
		cluster.Name, cluster.Spec.Size, cluster.Name, cluster.Namespace, clusterSuffix, consts.SidecarBackupRoute,
	)
}
