package v1

import (
	"k8s.io/apimachinery/pkg/runtime"
)

// DeepCopyInto copies the receiver into out.
func (in *StoreSpec) DeepCopyInto(out *StoreSpec) {
	*out = *in
	if in.Hosts != nil {
		out.Hosts = make([]string, len(in.Hosts))
		copy(out.Hosts, in.Hosts)
	}
}

// DeepCopyInto copies the receiver into out.
func (in *ForumSyncSpec) DeepCopyInto(out *ForumSyncSpec) {
	*out = *in
	in.Store.DeepCopyInto(&out.Store)
	if in.Redis != nil {
		out.Redis = new(RedisSpec)
		*out.Redis = *in.Redis
	}
	if in.Statistics != nil {
		out.Statistics = new(StatisticsSpec)
		*out.Statistics = *in.Statistics
	}
}

// DeepCopyInto copies the receiver into out.
func (in *ForumSyncStatus) DeepCopyInto(out *ForumSyncStatus) {
	*out = *in
	if in.LastReconciledTime != nil {
		out.LastReconciledTime = in.LastReconciledTime.DeepCopy()
	}
}

// DeepCopyInto copies the receiver into out.
func (in *ForumSync) DeepCopyInto(out *ForumSync) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

// DeepCopy creates a new ForumSync.
func (in *ForumSync) DeepCopy() *ForumSync {
	if in == nil {
		return nil
	}
	out := new(ForumSync)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject implements runtime.Object.
func (in *ForumSync) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver into out.
func (in *ForumSyncList) DeepCopyInto(out *ForumSyncList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]ForumSync, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy creates a new ForumSyncList.
func (in *ForumSyncList) DeepCopy() *ForumSyncList {
	if in == nil {
		return nil
	}
	out := new(ForumSyncList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject implements runtime.Object.
func (in *ForumSyncList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}
