package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/scheme"
)

// GroupVersion is the group version used to register these objects
var GroupVersion = schema.GroupVersion{
	Group:   "forumsync.zetareticula.io",
	Version: "v1",
}

var (
	// SchemeBuilder is used to add go types to the GroupVersionKind scheme
	SchemeBuilder = &scheme.Builder{GroupVersion: GroupVersion}

	// AddToScheme adds the types in this group-version to the given scheme.
	AddToScheme = SchemeBuilder.AddToScheme
)

// StoreSpec selects the remote forum store.
type StoreSpec struct {
	// Type is one of mock, cassandra, sqlite or postgres
	Type string `json:"type"`
	// Hosts lists the Cassandra contact points
	Hosts []string `json:"hosts,omitempty"`
	// Keyspace is the Cassandra keyspace
	Keyspace string `json:"keyspace,omitempty"`
	// DSN addresses the SQL database
	DSN string `json:"dsn,omitempty"`
}

// RedisSpec enables the shared read-through cache.
type RedisSpec struct {
	Addr       string `json:"addr"`
	DB         int    `json:"db,omitempty"`
	TTLSeconds int    `json:"ttlSeconds,omitempty"`
}

// ConnectionSpec tunes how the store connection is established.
type ConnectionSpec struct {
	MinTries         int `json:"minTries,omitempty"`
	RetryDelayMillis int `json:"retryDelayMillis,omitempty"`
}

// StatisticsSpec enables the periodic cache statistics log.
type StatisticsSpec struct {
	IntervalSeconds int `json:"intervalSeconds,omitempty"`
}

// ForumSyncSpec defines the desired state of ForumSync
type ForumSyncSpec struct {
	Store StoreSpec  `json:"store"`
	Redis *RedisSpec `json:"redis,omitempty"`
	// Connection overrides the connection retry policy
	Connection ConnectionSpec `json:"connection,omitempty"`
	// Statistics enables the statistics collector when set
	Statistics *StatisticsSpec `json:"statistics,omitempty"`
	// RefreshIntervalMillis is the period of the background refresher. A
	// negative value disables it.
	RefreshIntervalMillis int `json:"refreshIntervalMillis,omitempty"`
	// MaxReplyDepth caps reply nesting in the presentation layer. A negative
	// value offers no reply forms.
	MaxReplyDepth int `json:"maxReplyDepth,omitempty"`
}

// ForumSyncStatus defines the observed state of ForumSync
type ForumSyncStatus struct {
	// Ready indicates the sync client is connected
	Ready bool `json:"ready"`
	// Message explains why the client is not ready
	Message string `json:"message,omitempty"`
	// ObservedGeneration is the spec generation the client was built from
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
	// CachedKeys is the number of keys in the entity store
	CachedKeys int `json:"cachedKeys"`
	// PendingRefresh is the number of keys awaiting refetch
	PendingRefresh int `json:"pendingRefresh"`
	// LastReconciledTime tracks the last reconciliation
	LastReconciledTime *metav1.Time `json:"lastReconciledTime,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=fs

// ForumSync is the Schema for the forumsyncs API
type ForumSync struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ForumSyncSpec   `json:"spec,omitempty"`
	Status ForumSyncStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ForumSyncList contains a list of ForumSync
type ForumSyncList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ForumSync `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ForumSync{}, &ForumSyncList{})
}
