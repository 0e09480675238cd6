package site

import (
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/site-audit/internal/list"
	"github.com/JakeFAU/site-audit/internal/mainqueue"
	"github.com/JakeFAU/site-audit/internal/notify"
	"github.com/JakeFAU/site-audit/internal/store"
)

// AllSitesDidChange is posted whenever the registry contents change. It has no
// payload; observers call AllSites again.
const AllSitesDidChange notify.Name = "site.AllSitesDidChange"

const (
	defaultFileName = "sites.json"
	senderName      = "site.Registry"
)

// Manager is the registry command surface.
type Manager interface {
	CreateSite(values Values) Site
	UpdateSite(id uuid.UUID, values Values) bool
	RemoveSite(id uuid.UUID) int
	Site(id uuid.UUID) (Site, bool)
	AllSites() ([]Site, bool)
	Subscribe(fn notify.Handler) notify.Subscription
}

// IDGenerator produces site identifiers.
type IDGenerator interface {
	NewRawID() (uuid.UUID, error)
}

// DirectoryResolver locates the storage directory asynchronously and receives
// load-time errors. *storedir.Directory satisfies it.
type DirectoryResolver interface {
	UseOnQueue(dispatch mainqueue.Dispatcher, fn func(dir string, err error))
	Report(err error)
}

// Persistence loads and saves the site list.
type Persistence interface {
	EnsureLoaded(dispatch mainqueue.Dispatcher, completion func(store.Result[Site]))
	Save(items []Site) error
}

// Options wires a Registry.
//   - Directory: storage location and error hook (required).
//   - Dispatcher: the main queue every callback runs on (required).
//   - Center: broadcast channel (defaults to a private Center).
//   - Open: builds the persistence for a resolved directory (defaults to a
//     JSON ListStore at <dir>/<FileName> keyed by ItemsKey).
//   - AutoSave: persist after every change once loaded.
type Options struct {
	Directory  DirectoryResolver
	Dispatcher mainqueue.Dispatcher
	Center     *notify.Center
	IDs        IDGenerator
	Open       func(dir string) Persistence
	FileName   string
	ItemsKey   string
	AutoSave   bool
	Logger     *zap.Logger
}

// Registry owns the lifetime of every site. The persisted document is a
// mirror of it. Every method must run on the main queue.
type Registry struct {
	sites     *list.IndexedList[Site]
	observer  list.Subscription
	available bool
	loaded    chan struct{}

	dir      DirectoryResolver
	dispatch mainqueue.Dispatcher
	center   *notify.Center
	ids      IDGenerator
	open     func(dir string) Persistence
	autoSave bool
	saver    *store.AutoSaver[Site]
	logger   *zap.Logger
}

// NewRegistry starts with an empty list and begins resolving the storage
// directory. The persisted sites are adopted on the main queue once loaded.
func NewRegistry(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	center := opts.Center
	if center == nil {
		center = notify.NewCenter(notify.Config{Logger: logger})
	}
	r := &Registry{
		sites:    list.New[Site](),
		loaded:   make(chan struct{}),
		dir:      opts.Directory,
		dispatch: opts.Dispatcher,
		center:   center,
		ids:      opts.IDs,
		open:     opts.Open,
		autoSave: opts.AutoSave,
		logger:   logger,
	}
	if r.open == nil {
		r.open = jsonPersistence(opts.FileName, opts.ItemsKey, logger)
	}
	r.observer = r.sites.Observe(r.sitesChanged)
	r.dir.UseOnQueue(r.dispatch, r.directoryResolved)
	return r
}

func jsonPersistence(fileName, itemsKey string, logger *zap.Logger) func(string) Persistence {
	if fileName == "" {
		fileName = defaultFileName
	}
	return func(dir string) Persistence {
		return store.NewListStore[Site](filepath.Join(dir, fileName), nil, store.Options[Site]{
			Transformer: store.KeyTransformer[Site]{Key: itemsKey},
			Logger:      logger,
		})
	}
}

func (r *Registry) directoryResolved(dir string, err error) {
	if err != nil {
		r.logger.Warn("site storage directory unavailable; registry stays empty", zap.Error(err))
		r.markAvailable()
		return
	}
	persistence := r.open(dir)
	persistence.EnsureLoaded(r.dispatch, func(res store.Result[Site]) {
		r.adopt(persistence, res)
	})
}

func (r *Registry) adopt(persistence Persistence, res store.Result[Site]) {
	defer r.markAvailable()
	if res.Err != nil {
		r.logger.Warn("site registry load failed; registry stays empty", zap.Error(res.Err))
		r.dir.Report(res.Err)
		return
	}

	// Sites created before the load finished are carried over, not dropped.
	early := r.sites.Snapshot()
	r.observer.Cancel()
	loaded := res.List
	loaded.Append(early...)
	r.sites = loaded
	r.observer = r.sites.Observe(r.sitesChanged)
	if r.autoSave {
		r.saver = store.AutoSave[Site](persistence, r.sites, r.dispatch, r.dir.Report)
		if len(early) > 0 {
			r.saver.SaveNow(r.sites.Snapshot())
		}
	}
	r.logger.Info("site registry loaded", zap.Int("sites", r.sites.Len()))
	r.notifyAllSitesDidChange()
}

func (r *Registry) markAvailable() {
	if r.available {
		return
	}
	r.available = true
	close(r.loaded)
}

func (r *Registry) sitesChanged(list.Changes[Site]) {
	r.notifyAllSitesDidChange()
}

func (r *Registry) notifyAllSitesDidChange() {
	r.center.Post(AllSitesDidChange, senderName)
}

// Loaded is closed once the load outcome, success or failure, has been applied.
// It is safe to wait on from any goroutine.
func (r *Registry) Loaded() <-chan struct{} {
	return r.loaded
}

// AllSites returns the sites in order. The boolean is false until the load
// outcome is known, distinguishing "not yet available" from "empty".
func (r *Registry) AllSites() ([]Site, bool) {
	return r.sites.Snapshot(), r.available
}

// Site looks a site up by ID.
func (r *Registry) Site(id uuid.UUID) (Site, bool) {
	position, ok := r.finder().PositionOf(id)
	if !ok {
		return Site{}, false
	}
	return r.sites.At(position)
}

// CreateSite appends a new site with a fresh ID. It always succeeds.
func (r *Registry) CreateSite(values Values) Site {
	s := Site{ID: r.newID(), Values: values}
	r.sites.Append(s)
	return s
}

// AddSite appends s as-is. Duplicate IDs are not rejected.
func (r *Registry) AddSite(s Site) {
	r.sites.Append(s)
}

// UpdateSite replaces the values of the site with id. An unknown id is a
// no-op; the result reports whether a site was replaced.
func (r *Registry) UpdateSite(id uuid.UUID, values Values) bool {
	return r.assistant().ReplaceWhereKeyIs(id, Site{ID: id, Values: values})
}

// RemoveSite removes every site with id and returns how many were removed.
// An unknown id is a no-op.
func (r *Registry) RemoveSite(id uuid.UUID) int {
	return r.assistant().RemoveWhereKeyIn(id)
}

// Subscribe registers fn for AllSitesDidChange.
func (r *Registry) Subscribe(fn notify.Handler) notify.Subscription {
	return r.center.Subscribe(AllSitesDidChange, fn)
}

// Close stops autosaving after flushing pending writes.
func (r *Registry) Close() {
	if r.saver != nil {
		r.saver.Close()
		r.saver = nil
	}
}

// finder is rebuilt per call over whichever list is live.
func (r *Registry) finder() list.Finder[uuid.UUID, Site] {
	return list.NewFinder(r.sites, uuidOf)
}

func (r *Registry) assistant() list.EditableAssistant[uuid.UUID, Site] {
	return list.NewEditableAssistant(r.sites, r.finder())
}

func (r *Registry) newID() uuid.UUID {
	if r.ids != nil {
		id, err := r.ids.NewRawID()
		if err == nil {
			return id
		}
		r.logger.Warn("site id generation failed; using random id", zap.Error(err))
	}
	return uuid.New()
}

var _ Manager = (*Registry)(nil)
