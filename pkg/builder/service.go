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
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	xlinev1 "github.com/bsbds/xline-operator-go/pkg/apis/xlinecluster/v1"
)

// BuildHeadlessService builds the headless Service fronting the cluster's
// StatefulSet pods, exposing one port per port declared on the workload
// container.
func BuildHeadlessService(cluster *xlinev1.XlineCluster) (*corev1.Service, error) {
	ports, err := extractServicePorts(cluster)
	if err != nil {
		return nil, err
	}

	svc := &corev1.Service{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "Service",
		},
		ObjectMeta: objectMeta(cluster, cluster.Name),
		Spec: corev1.ServiceSpec{
			ClusterIP: corev1.ClusterIPNone,
			Selector:  appLabels(cluster.Name),
			Ports:     ports,
		},
	}
	svc.Annotations = map[string]string{ContentHashAnnotation: ContentHash(svc.Spec)}
	return svc, nil
}

func extractServicePorts(cluster *xlinev1.XlineCluster) ([]corev1.ServicePort, error) {
	containerPorts := cluster.Spec.Container.Ports
	if len(containerPorts) == 0 {
		return nil, missingObject(".spec.container.ports")
	}

	ports := make([]corev1.ServicePort, 0, len(containerPorts))
	for _, p := range containerPorts {
		ports = append(ports, corev1.ServicePort{
			Name: p.Name,
			Port: p.ContainerPort,
		})
	}
	return ports, nil
}
