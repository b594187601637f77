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

package v1

import (
	corev1 "k8s.io/api/core/v1"
	runtime "k8s.io/apimachinery/pkg/runtime"
)

// DeepCopyInto copies the receiver into out.
func (in *XlineCluster) DeepCopyInto(out *XlineCluster) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
}

// DeepCopy creates a new XlineCluster that is a deep copy of the receiver.
func (in *XlineCluster) DeepCopy() *XlineCluster {
	if in == nil {
		return nil
	}
	out := new(XlineCluster)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject implements runtime.Object.
func (in *XlineCluster) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver into out.
func (in *XlineClusterList) DeepCopyInto(out *XlineClusterList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		l := make([]XlineCluster, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&l[i])
		}
		out.Items = l
	}
}

// DeepCopy creates a new XlineClusterList that is a deep copy of the receiver.
func (in *XlineClusterList) DeepCopy() *XlineClusterList {
	if in == nil {
		return nil
	}
	out := new(XlineClusterList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject implements runtime.Object.
func (in *XlineClusterList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver into out.
func (in *XlineClusterSpec) DeepCopyInto(out *XlineClusterSpec) {
	*out = *in
	in.Container.DeepCopyInto(&out.Container)
	if in.Data != nil {
		out.Data = in.Data.DeepCopy()
	}
	if in.Backup != nil {
		out.Backup = new(BackupSpec)
		in.Backup.DeepCopyInto(out.Backup)
	}
	if in.PVCs != nil {
		out.PVCs = make([]corev1.PersistentVolumeClaim, len(in.PVCs))
		for i := range in.PVCs {
			in.PVCs[i].DeepCopyInto(&out.PVCs[i])
		}
	}
}

// DeepCopy creates a new XlineClusterSpec that is a deep copy of the receiver.
func (in *XlineClusterSpec) DeepCopy() *XlineClusterSpec {
	if in == nil {
		return nil
	}
	out := new(XlineClusterSpec)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver into out.
func (in *BackupSpec) DeepCopyInto(out *BackupSpec) {
	*out = *in
	in.Storage.DeepCopyInto(&out.Storage)
}

// DeepCopy creates a new BackupSpec that is a deep copy of the receiver.
func (in *BackupSpec) DeepCopy() *BackupSpec {
	if in == nil {
		return nil
	}
	out := new(BackupSpec)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver into out.
func (in *StorageSpec) DeepCopyInto(out *StorageSpec) {
	*out = *in
	if in.S3 != nil {
		out.S3 = new(S3StorageSpec)
		*out.S3 = *in.S3
	}
	if in.PVC != nil {
		out.PVC = in.PVC.DeepCopy()
	}
}

// DeepCopy creates a new StorageSpec that is a deep copy of the receiver.
func (in *StorageSpec) DeepCopy() *StorageSpec {
	if in == nil {
		return nil
	}
	out := new(StorageSpec)
	in.DeepCopyInto(out)
	return out
}
