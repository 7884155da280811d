// Package manager implements the Resource Manager: a long-lived
// registry that mounts packages, resolves logical resource names to
// stable ids, loads payloads on demand, reference-counts them in
// memory, and supports hot reload.
//
// All public operations take Manager.mu for the work they do on
// Manager state; Reload, LoadAsync and Shutdown release it before
// calling hot-reload subscribers, handing work to the async pool, or
// draining that pool, respectively. Internal helpers with a Locked suffix assume the caller already
// holds it and must never re-acquire it. Earlier drafts of this
// registry re-entered its own lock from unmount-all and
// release-resource paths; the public/private split exists specifically
// to rule that out.
package manager

import (
	"fmt"
	"os"

	"github.com/CognotEngine/amberpipeline/internal/corelog"
	"github.com/CognotEngine/amberpipeline/internal/ident"
	"github.com/CognotEngine/amberpipeline/pkgformat"
	"github.com/fsnotify/fsnotify"

	"sync"
)

// Config configures a Manager at construction time.
type Config struct {
	// AsyncWorkers is how many goroutines service LoadAsync. Defaults
	// to 2 when zero.
	AsyncWorkers int
	// AsyncQueueSize bounds the LoadAsync task queue. Defaults to 64.
	AsyncQueueSize int
	// WatchForChanges enables the fsnotify-backed hot reload of
	// mounted package files. Off by default: tests and CLI one-shot
	// tools generally don't want a background watcher goroutine.
	WatchForChanges bool
}

func (c *Config) applyDefaults() {
	if c.AsyncWorkers <= 0 {
		c.AsyncWorkers = 2
	}
	if c.AsyncQueueSize <= 0 {
		c.AsyncQueueSize = 64
	}
}

type mountedPackage struct {
	path   string
	file   *os.File
	handle uint32
	ids    []pkgformat.AssetID
}

// Manager is the runtime registry of mounted packages and their
// resources. The zero value is not usable; construct with New.
type Manager struct {
	mu sync.Mutex

	cfg         Config
	initialized bool
	rootPath    string

	nameToID     map[string]pkgformat.AssetID
	resources    map[pkgformat.AssetID]*resourceItem
	packages     map[string]*mountedPackage
	handles      *ident.Table
	totalMemory  uint64
	subscribers  []func(pkgformat.AssetID)

	asyncPool *asyncPool
	watcher   *fsnotify.Watcher
	watchDone chan struct{}
}

// New constructs a Manager. Call Initialize before using it.
func New(cfg Config) *Manager {
	cfg.applyDefaults()
	return &Manager{cfg: cfg}
}

var (
	defaultOnce sync.Once
	defaultMgr  *Manager
)

// Default returns a lazily-constructed process-wide Manager, kept for
// callers that want a single shared registry without threading one
// through explicitly. Callers that want independent, test-isolated
// instances should use New directly instead.
func Default() *Manager {
	defaultOnce.Do(func() {
		defaultMgr = New(Config{})
	})
	return defaultMgr
}

// Initialize brings up the Manager's registry rooted at rootPath.
// Double-init is a no-op returning nil.
func (m *Manager) Initialize(rootPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	m.rootPath = rootPath
	m.nameToID = make(map[string]pkgformat.AssetID)
	m.resources = make(map[pkgformat.AssetID]*resourceItem)
	m.packages = make(map[string]*mountedPackage)
	m.handles = ident.New()
	m.asyncPool = newAsyncPool(m.cfg.AsyncWorkers, m.cfg.AsyncQueueSize)

	if m.cfg.WatchForChanges {
		if err := m.startWatch(); err != nil {
			return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
		}
	}

	m.initialized = true
	corelog.Info("manager: initialized at %q", rootPath)
	return nil
}

// Shutdown unmounts every package, drains the async pool, stops the
// watcher, and returns the Manager to its pre-Initialize state.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		return nil
	}
	for path := range m.packages {
		m.unmountLocked(path)
	}
	if m.watcher != nil {
		close(m.watchDone)
		m.watcher.Close()
		m.watcher = nil
	}
	m.initialized = false
	m.mu.Unlock()

	if m.asyncPool != nil {
		m.asyncPool.stop()
	}
	corelog.Info("manager: shutdown complete")
	return nil
}

// Mount opens packagePath, reads its header and metadata table, and
// registers every resource it describes. Payload bytes are not read.
func (m *Manager) Mount(packagePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return pkgformat.ErrNotInitialized
	}
	return m.mountLocked(packagePath)
}

func (m *Manager) mountLocked(packagePath string) error {
	if _, already := m.packages[packagePath]; already {
		corelog.Warn("manager: %s already mounted", packagePath)
		return nil
	}

	f, err := os.Open(packagePath)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}

	headerBuf := make([]byte, pkgformat.HeaderSize)
	if _, err := f.ReadAt(headerBuf, 0); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", pkgformat.ErrTruncatedPackage, err)
	}
	header, err := pkgformat.DecodeHeader(headerBuf)
	if err != nil {
		f.Close()
		return err
	}
	if !header.MagicValid() {
		f.Close()
		return pkgformat.ErrBadMagic
	}
	if header.Version > pkgformat.CurrentVersion {
		f.Close()
		return fmt.Errorf("%w: version %d", pkgformat.ErrUnsupportedVersion, header.Version)
	}

	tailSize := info.Size() - int64(pkgformat.HeaderSize)
	if tailSize < 0 {
		f.Close()
		return pkgformat.ErrTruncatedPackage
	}
	tail := make([]byte, tailSize)
	if _, err := f.ReadAt(tail, int64(pkgformat.HeaderSize)); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", pkgformat.ErrTruncatedPackage, err)
	}

	if pkgformat.Checksum(tail) != header.Checksum {
		f.Close()
		return pkgformat.ErrChecksumMismatch
	}

	metadataBytes := int64(header.ResourceCount) * int64(pkgformat.MetadataSize)
	if metadataBytes > int64(len(tail)) {
		f.Close()
		return pkgformat.ErrTruncatedPackage
	}

	records := make([]*pkgformat.ResourceMetadata, 0, header.ResourceCount)
	for i := uint32(0); i < header.ResourceCount; i++ {
		start := int64(i) * int64(pkgformat.MetadataSize)
		record, err := pkgformat.DecodeMetadata(tail[start : start+int64(pkgformat.MetadataSize)])
		if err != nil {
			f.Close()
			return err
		}
		if record.Offset+record.Size > header.TotalSize {
			f.Close()
			return pkgformat.ErrTruncatedPackage
		}
		records = append(records, record)
	}

	pkg := &mountedPackage{path: packagePath, file: f}
	pkg.handle = m.handles.Acquire(pkg)

	for _, record := range records {
		id := pkgformat.HashName(record.Name)
		if _, exists := m.resources[id]; exists {
			corelog.Warn("manager: duplicate resource id %d (name %q) in %s, skipping", id, record.Name, packagePath)
			continue
		}
		record.ID = id
		m.resources[id] = &resourceItem{
			metadata: *record,
			status:   StatusUnloaded,
			pkgPath:  packagePath,
		}
		m.nameToID[record.Name] = id
		pkg.ids = append(pkg.ids, id)
	}

	m.packages[packagePath] = pkg
	if m.watcher != nil {
		if err := m.watcher.Add(packagePath); err != nil {
			corelog.Warn("manager: failed to watch %s: %v", packagePath, err)
		}
	}
	corelog.Info("manager: mounted %s (%d resources)", packagePath, header.ResourceCount)
	return nil
}

// Unmount removes packagePath's contribution. Resources with
// outstanding references keep their metadata (status becomes
// Unloaded) but are no longer reloadable by name once unmounted.
func (m *Manager) Unmount(packagePath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return pkgformat.ErrNotInitialized
	}
	m.unmountLocked(packagePath)
	return nil
}

// UnmountAll unmounts every mounted package. Implemented as a loop
// over unmountLocked rather than calling Unmount, so the lock is
// acquired exactly once for the whole operation.
func (m *Manager) UnmountAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return pkgformat.ErrNotInitialized
	}
	for path := range m.packages {
		m.unmountLocked(path)
	}
	return nil
}

func (m *Manager) unmountLocked(packagePath string) {
	pkg, ok := m.packages[packagePath]
	if !ok {
		return
	}
	for _, id := range pkg.ids {
		item, ok := m.resources[id]
		if !ok {
			continue
		}
		if item.refCount > 0 {
			m.freePayloadLocked(item)
			item.status = StatusUnloaded
			continue
		}
		delete(m.resources, id)
		delete(m.nameToID, item.metadata.Name)
	}
	if m.watcher != nil {
		m.watcher.Remove(packagePath)
	}
	m.handles.Release(pkg.handle)
	pkg.file.Close()
	delete(m.packages, packagePath)
	corelog.Info("manager: unmounted %s", packagePath)
}

// Load resolves name to an AssetID, reading and (if necessary)
// decompressing its payload. Returns (InvalidAssetID, err) on any
// failure. If reading or decompressing the payload fails, the
// resource's status becomes Failed; an unknown name, a name whose
// package is no longer mounted, or a type mismatch leaves it unchanged.
func (m *Manager) Load(name string, resourceType pkgformat.ResourceType) (pkgformat.AssetID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		return pkgformat.InvalidAssetID, pkgformat.ErrNotInitialized
	}
	return m.loadLocked(name, resourceType)
}

func (m *Manager) loadLocked(name string, resourceType pkgformat.ResourceType) (pkgformat.AssetID, error) {
	id, ok := m.nameToID[name]
	if !ok {
		return pkgformat.InvalidAssetID, pkgformat.ErrNameNotFound
	}
	item := m.resources[id]
	if _, mounted := m.packages[item.pkgPath]; !mounted {
		// Metadata retained after Unmount with outstanding refs: the
		// name is still known but no mounted package can supply it.
		return pkgformat.InvalidAssetID, pkgformat.ErrNameNotFound
	}
	if item.metadata.Type != resourceType {
		return pkgformat.InvalidAssetID, pkgformat.ErrTypeMismatch
	}
	if item.status == StatusLoaded {
		item.refCount++
		return id, nil
	}

	item.status = StatusLoading
	payload, err := m.readPayloadLocked(item)
	if err != nil {
		item.status = StatusFailed
		corelog.Error("manager: load %q failed: %v", name, err)
		return pkgformat.InvalidAssetID, err
	}
	item.payload = payload
	item.status = StatusLoaded
	item.refCount = 1
	m.totalMemory += uint64(len(payload))
	return id, nil
}

// LoadAsync is semantically equivalent to Load followed by invoking
// callback(id, status) exactly once. The work happens on the
// Manager's async worker pool rather than the caller's goroutine.
// Like every other public operation, it requires a prior Initialize:
// called before Initialize or after Shutdown it delivers a single
// Failed callback instead of touching the (nil or drained) pool.
func (m *Manager) LoadAsync(name string, resourceType pkgformat.ResourceType, callback func(pkgformat.AssetID, LoadStatus)) {
	m.mu.Lock()
	if !m.initialized {
		m.mu.Unlock()
		corelog.Error("manager: LoadAsync %q failed: %v", name, pkgformat.ErrNotInitialized)
		if callback != nil {
			callback(pkgformat.InvalidAssetID, StatusFailed)
		}
		return
	}
	pool := m.asyncPool
	m.mu.Unlock()

	pool.submit(asyncTask{
		run: func() (pkgformat.AssetID, LoadStatus) {
			id, err := m.Load(name, resourceType)
			if err != nil {
				return pkgformat.InvalidAssetID, StatusFailed
			}
			return id, StatusLoaded
		},
		cb: callback,
	})
}

// reopenPackageLocked closes and reopens the owning package's file
// handle. Reload calls this before re-reading: renaming a new package
// into place (the packer's non-atomic-write mitigation) leaves any
// already-open file descriptor pinned to the old inode, so picking up
// the new bytes requires reopening by path rather than re-reading
// through the cached handle.
func (m *Manager) reopenPackageLocked(pkgPath string) error {
	pkg, ok := m.packages[pkgPath]
	if !ok {
		return fmt.Errorf("%w: %s not mounted", pkgformat.ErrIO, pkgPath)
	}
	f, err := os.Open(pkgPath)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgformat.ErrIO, err)
	}
	pkg.file.Close()
	pkg.file = f
	return nil
}

// readPayloadLocked reads item's stored bytes from its owning package
// and decompresses them per its metadata.
func (m *Manager) readPayloadLocked(item *resourceItem) ([]byte, error) {
	pkg, ok := m.packages[item.pkgPath]
	if !ok {
		return nil, fmt.Errorf("%w: owning package %s not mounted", pkgformat.ErrIO, item.pkgPath)
	}
	stored := make([]byte, item.metadata.Size)
	if _, err := pkg.file.ReadAt(stored, int64(item.metadata.Offset)); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgformat.ErrTruncatedPackage, err)
	}
	return decompress(stored, &item.metadata)
}

// Get returns a read-only borrow of id's resident payload, or nil if
// the resource doesn't exist or isn't currently Loaded. The borrow is
// valid only until the next Release/Reload/Unmount/Shutdown call that
// can mutate this id; callers needing a longer-lived copy must copy
// the slice themselves.
func (m *Manager) Get(id pkgformat.AssetID) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.resources[id]
	if !ok || item.status != StatusLoaded {
		return nil
	}
	return item.payload
}

// AddRef increments id's reference count. No-op if id is unknown.
func (m *Manager) AddRef(id pkgformat.AssetID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.resources[id]; ok {
		item.refCount++
	}
}

// Release decrements id's reference count, saturating at zero. When
// the count reaches zero on a Loaded item, its payload is freed and
// status returns to Unloaded.
func (m *Manager) Release(id pkgformat.AssetID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.resources[id]
	if !ok {
		return
	}
	if item.refCount > 0 {
		item.refCount--
	}
	if item.refCount == 0 && item.status == StatusLoaded {
		m.freePayloadLocked(item)
		item.status = StatusUnloaded
	}
}

func (m *Manager) freePayloadLocked(item *resourceItem) {
	if item.payload != nil {
		m.totalMemory -= uint64(len(item.payload))
		item.payload = nil
	}
}

// Reload preserves id's current reference count, re-reads its payload
// from its owning package, and on success fires every hot-reload
// subscriber with the lock released. On failure the item is left
// Unloaded with its original reference count.
func (m *Manager) Reload(id pkgformat.AssetID) error {
	m.mu.Lock()
	item, ok := m.resources[id]
	if !ok {
		m.mu.Unlock()
		return pkgformat.ErrNameNotFound
	}

	if item.status == StatusLoaded {
		m.freePayloadLocked(item)
	}
	item.status = StatusUnloaded

	if err := m.reopenPackageLocked(item.pkgPath); err != nil {
		m.mu.Unlock()
		corelog.Error("manager: reload of id %d failed: %v", id, err)
		return err
	}

	payload, err := m.readPayloadLocked(item)
	if err != nil {
		item.status = StatusUnloaded
		m.mu.Unlock()
		corelog.Error("manager: reload of id %d failed: %v", id, err)
		return err
	}
	item.payload = payload
	item.status = StatusLoaded
	m.totalMemory += uint64(len(payload))

	subscribers := append([]func(pkgformat.AssetID){}, m.subscribers...)
	m.mu.Unlock()

	for _, sink := range subscribers {
		sink(id)
	}
	return nil
}

// RegisterHotReload appends sink to the list invoked on every
// successful Reload.
func (m *Manager) RegisterHotReload(sink func(pkgformat.AssetID)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, sink)
}

// UnloadUnused frees the payload of every resident resource with a
// zero reference count.
func (m *Manager) UnloadUnused() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.resources {
		if item.refCount == 0 && item.status == StatusLoaded {
			m.freePayloadLocked(item)
			item.status = StatusUnloaded
		}
	}
}

// UnloadAll frees every resident payload regardless of reference
// count. Metadata and reference counts are retained; a subsequent Load
// reloads fresh bytes.
func (m *Manager) UnloadAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.resources {
		if item.status == StatusLoaded {
			m.freePayloadLocked(item)
			item.status = StatusUnloaded
		}
	}
}

// ResourceInfo returns a copy of id's metadata record.
func (m *Manager) ResourceInfo(id pkgformat.AssetID) (pkgformat.ResourceMetadata, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.resources[id]
	if !ok {
		return pkgformat.ResourceMetadata{}, false
	}
	return item.metadata, true
}

// ResourceName returns id's logical name.
func (m *Manager) ResourceName(id pkgformat.AssetID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.resources[id]
	if !ok {
		return "", false
	}
	return item.metadata.Name, true
}

// ResourceType returns id's stored resource type.
func (m *Manager) ResourceType(id pkgformat.AssetID) (pkgformat.ResourceType, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.resources[id]
	if !ok {
		return pkgformat.ResourceTypeUnknown, false
	}
	return item.metadata.Type, true
}

// LoadedCount returns how many resources are currently Loaded.
func (m *Manager) LoadedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, item := range m.resources {
		if item.status == StatusLoaded {
			n++
		}
	}
	return n
}

// TotalMemory returns the sum of resident payload bytes across every
// Loaded resource.
func (m *Manager) TotalMemory() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalMemory
}
