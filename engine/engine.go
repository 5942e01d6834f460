//go:generate mockgen -destination mock_engine/mock_engine.go github.com/cryodb/cryo/engine Conn,Snapshot,WriteTx,LiveObject
package engine

// Object is a single stored record: a flat bag of properties.
// Objects handed out by the engine are detached copies, safe to retain
// and to read from any goroutine.
type Object map[string]any

// ObjectRef addresses one object inside one collection.
type ObjectRef struct {
	Collection string
	ID         string
}

// ChangeKind describes what happened to an observed object in a commit.
type ChangeKind int

const (
	ObjectChanged ChangeKind = iota
	ObjectDeleted
)

// ObjectChange is delivered to per-object observers, one per commit that
// touched the observed object.
type ObjectChange struct {
	Ref     ObjectRef
	Kind    ChangeKind
	Object  Object // nil when Kind == ObjectDeleted
	Version uint64
}

// CommitEvent is delivered to commit subscribers after every successful
// commit on the underlying file, including commits made through other
// connections. Snapshot is pinned on behalf of the subscriber and must be
// released by it.
type CommitEvent struct {
	Version  uint64
	Snapshot Snapshot
}

// MigrateFunc upgrades on-disk data from an older schema version. It runs
// inside a write transaction during Open; the transaction is committed with
// the configured schema version on success.
type MigrateFunc func(fromSchema uint32, tx WriteTx) error

// Config are the options recognized by an engine implementation.
type Config struct {
	// Path of the database file. An empty path opens a purely in-memory
	// database that vanishes with its last connection.
	Path string
	// SchemaVersion of the data the caller expects to work with.
	SchemaVersion uint32
	// MaxActiveVersions caps the number of distinct versions that may be
	// pinned at once. Zero means unbounded.
	MaxActiveVersions int
	// EncryptionKey enables at-rest encryption when set. Must be exactly
	// KeyLength bytes.
	EncryptionKey []byte
	// Migrate is invoked when the file carries an older schema version.
	Migrate MigrateFunc
}

// KeyLength is the required encryption key size in bytes.
const KeyLength = 32

// Conn is one open connection to a database file.
//
// A Conn and every handle obtained through it are execution-context-affine:
// all calls must happen on the goroutine that owns the connection. The
// client layer above guarantees this by funneling calls through a dedicated
// dispatcher per connection. Callbacks registered via SubscribeCommits and
// ObserveObject are the one exception: they fire on the committer's
// goroutine and must hand off before touching connection state.
type Conn interface {
	// BeginRead pins the current version and returns a frozen snapshot of it.
	BeginRead() (Snapshot, error)
	// BeginWrite starts the single write transaction. It blocks until any
	// concurrent write transaction on the same file finishes.
	BeginWrite() (WriteTx, error)
	// ThawObject resolves a frozen object reference against the current
	// version, returning a live view of it. Fails with ErrDeleted when the
	// object no longer exists.
	ThawObject(ref ObjectRef) (LiveObject, error)
	// SubscribeCommits registers a whole-database commit callback. For any
	// single commit the callback fires before any ObserveObject callback.
	SubscribeCommits(fn func(ev CommitEvent)) (unsubscribe func())
	// ObserveObject registers a per-object change callback. Fails with
	// ErrDeleted when the object does not exist at the current version.
	ObserveObject(ref ObjectRef, fn func(ch ObjectChange)) (unsubscribe func(), err error)
	// NumActiveVersions reports how many distinct versions are pinned by
	// outstanding snapshots and write transactions across all connections.
	NumActiveVersions() int
	// Close releases the connection and every pin it still holds.
	Close() error
}

// Snapshot is an immutable point-in-time view of all data.
type Snapshot interface {
	Version() uint64
	Get(collection, id string) (Object, bool)
	Count(collection string) int
	IDs(collection string) []string
	// Release unpins the snapshot's version. Idempotent; reads remain valid
	// after release, only the active-versions accounting is affected.
	Release()
}

// WriteTx is the single in-flight write transaction. It observes its own
// uncommitted changes; concurrent readers do not.
type WriteTx interface {
	// Version is the version this transaction will commit as.
	Version() uint64
	// Insert stores obj under a fresh unique id and returns the id.
	Insert(collection string, obj Object) (id string)
	Put(collection, id string, obj Object)
	Delete(collection, id string) bool
	Get(collection, id string) (Object, bool)
	Count(collection string) int
	IDs(collection string) []string
	// Commit atomically publishes the transaction and returns a frozen,
	// pinned snapshot of the new version.
	Commit() (Snapshot, error)
	// Rollback discards the transaction. Safe to call after a failed Commit.
	Rollback()
}

// LiveObject is a thawed, current-version view of a single object.
type LiveObject interface {
	Ref() ObjectRef
	Version() uint64
	Value() Object
}
