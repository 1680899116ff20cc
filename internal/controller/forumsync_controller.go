// Package controller runs sync clients for ForumSync resources and reports
// their cache state in the resource status.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	v1 "github.com/zetareticula/forumsync/api/v1"
	"github.com/zetareticula/forumsync/internal/forum"
	"github.com/zetareticula/forumsync/internal/model"
)

const (
	// StatusInterval is how often a ready resource is requeued to refresh its status.
	StatusInterval = time.Minute
	// RetryInterval is how long to wait before reopening an unreachable store.
	RetryInterval = 30 * time.Second
)

// Opener connects the remote store of a configuration.
type Opener func(ctx context.Context, cfg *forum.Config, log logr.Logger) (*forum.Backend, error)

type managed struct {
	client     *forum.Client
	backend    *forum.Backend
	generation int64
}

func (m *managed) close() error {
	m.client.Close()
	return m.backend.Close()
}

// ForumSyncReconciler reconciles a ForumSync object
type ForumSyncReconciler struct {
	client.Client
	Scheme  *runtime.Scheme
	Metrics *Metrics
	// Open defaults to forum.OpenRemote.
	Open Opener
	// Now defaults to time.Now.
	Now func() time.Time

	mu      sync.Mutex
	clients map[string]*managed
}

// ConfigFor translates a resource spec into a validated client configuration.
func ConfigFor(spec v1.ForumSyncSpec) (*forum.Config, error) {
	cfg := &forum.Config{
		Store: forum.StoreConfig{
			Type:     spec.Store.Type,
			Hosts:    spec.Store.Hosts,
			Keyspace: spec.Store.Keyspace,
			DSN:      spec.Store.DSN,
		},
		Connection: forum.ConnectionConfig{
			MinTries:   spec.Connection.MinTries,
			RetryDelay: spec.Connection.RetryDelayMillis,
		},
		Refresh:      forum.RefreshConfig{IntervalMs: spec.RefreshIntervalMillis},
		Presentation: forum.PresentationConfig{MaxReplyDepth: spec.MaxReplyDepth},
	}
	if spec.Statistics != nil {
		cfg.Statistics = forum.StatisticsConfig{
			Enabled:         true,
			IntervalSeconds: spec.Statistics.IntervalSeconds,
		}
	}
	if spec.Redis != nil {
		cfg.Redis = forum.RedisConfig{
			Enabled:    true,
			Addr:       spec.Redis.Addr,
			DB:         spec.Redis.DB,
			TTLSeconds: spec.Redis.TTLSeconds,
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// +kubebuilder:rbac:groups=forumsync.zetareticula.io,resources=forumsyncs,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=forumsync.zetareticula.io,resources=forumsyncs/status,verbs=get;update;patch

func (r *ForumSyncReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := log.FromContext(ctx)
	key := req.NamespacedName.String()

	var fs v1.ForumSync
	if err := r.Get(ctx, req.NamespacedName, &fs); err != nil {
		if apierrors.IsNotFound(err) {
			r.release(key, log)
			r.Metrics.reconciled(resultDeleted)
			return ctrl.Result{}, nil
		}
		log.Error(err, "unable to fetch ForumSync")
		return ctrl.Result{}, err
	}

	cfg, err := ConfigFor(fs.Spec)
	if err != nil {
		log.Info("invalid ForumSync spec", "error", err.Error())
		r.release(key, log)
		r.Metrics.reconciled(resultInvalid)
		return ctrl.Result{}, r.updateStatus(ctx, &fs, nil, err)
	}

	m, err := r.ensure(ctx, key, fs.Generation, cfg, log)
	if err != nil {
		log.Error(err, "failed to open remote store", "store", cfg.Store.Type)
		r.Metrics.reconciled(resultUnavailable)
		if serr := r.updateStatus(ctx, &fs, nil, err); serr != nil {
			return ctrl.Result{}, serr
		}
		return ctrl.Result{RequeueAfter: RetryInterval}, nil
	}

	if err := m.client.RefreshStale(ctx); err != nil {
		log.V(1).Info("refresh incomplete", "error", err.Error())
	}
	r.Metrics.reconciled(resultReady)
	if err := r.updateStatus(ctx, &fs, m, nil); err != nil {
		log.Error(err, "failed to update ForumSync status")
		return ctrl.Result{}, err
	}
	return ctrl.Result{RequeueAfter: StatusInterval}, nil
}

// ensure returns the client of key, rebuilding it when the spec generation
// changed. A new client warms the feed to prove the store is reachable. The
// store is opened without holding the lock.
func (r *ForumSyncReconciler) ensure(ctx context.Context, key string, generation int64, cfg *forum.Config, log logr.Logger) (*managed, error) {
	r.mu.Lock()
	if m, ok := r.clients[key]; ok && m.generation == generation {
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()

	open := r.Open
	if open == nil {
		open = forum.OpenRemote
	}
	backend, err := open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	c := forum.NewClient(backend, model.StaticIdentity{UserID: "system:forumsync", Name: key},
		forum.WithConfig(cfg),
		forum.WithLogger(log.WithName("forum")))
	m := &managed{client: c, backend: backend, generation: generation}
	if _, err := c.GetPosts(ctx); err != nil {
		_ = m.close()
		return nil, err
	}

	r.mu.Lock()
	if r.clients == nil {
		r.clients = make(map[string]*managed)
	}
	prev, ok := r.clients[key]
	if ok && prev.generation == generation {
		r.mu.Unlock()
		_ = m.close()
		return prev, nil
	}
	r.clients[key] = m
	r.Metrics.managed(len(r.clients))
	r.mu.Unlock()

	if ok {
		if err := prev.close(); err != nil {
			log.Error(err, "failed to close previous client", "forumsync", key)
		}
	}
	log.Info("Initialized sync client", "forumsync", key, "store", cfg.Store.Type)
	return m, nil
}

func (r *ForumSyncReconciler) release(key string, log logr.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.clients[key]
	if !ok {
		return
	}
	delete(r.clients, key)
	r.Metrics.managed(len(r.clients))
	if err := m.close(); err != nil {
		log.Error(err, "failed to close client", "forumsync", key)
	}
	log.Info("Released sync client", "forumsync", key)
}

// SyncClient returns the client managed for a namespaced name.
func (r *ForumSyncReconciler) SyncClient(key string) (*forum.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.clients[key]
	if !ok {
		return nil, false
	}
	return m.client, true
}

// Shutdown closes every managed client.
func (r *ForumSyncReconciler) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, m := range r.clients {
		_ = m.close()
		delete(r.clients, key)
	}
	r.Metrics.managed(0)
}

func (r *ForumSyncReconciler) updateStatus(ctx context.Context, fs *v1.ForumSync, m *managed, cause error) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	fs.Status.LastReconciledTime = &metav1.Time{Time: now()}
	if cause != nil {
		fs.Status.Ready = false
		fs.Status.Message = cause.Error()
		fs.Status.CachedKeys = 0
		fs.Status.PendingRefresh = 0
	} else {
		fs.Status.Ready = true
		fs.Status.Message = ""
		fs.Status.ObservedGeneration = m.generation
		fs.Status.CachedKeys = len(m.client.Store().Keys())
		fs.Status.PendingRefresh = len(m.client.Pending())
	}
	return r.Status().Update(ctx, fs)
}

// SetupWithManager sets up the controller with the Manager
func (r *ForumSyncReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1.ForumSync{}).
		Complete(r)
}
