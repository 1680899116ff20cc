// Package model defines the forum records that flow between the remote store,
// the entity cache and the presentation layer.
package model

// Entity kinds. Cache keys and errors use these names.
const (
	KindPost     = "post"
	KindPosts    = "posts"
	KindComment  = "comment"
	KindComments = "comments"
)

// Entity is a value the cache can hold. DeepCopyEntity must return a copy that
// shares no mutable state with the receiver.
type Entity interface {
	EntityKind() string
	DeepCopyEntity() Entity
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyStringPtr(in *string) *string {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}
