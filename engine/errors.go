package engine

import "errors"

var (
	// ErrFileAccess means the database file could not be read or written.
	ErrFileAccess = errors.New("engine: file access failed")
	// ErrCorrupted means the database file failed its integrity check.
	ErrCorrupted = errors.New("engine: database file corrupted")
	// ErrEncryption means the encryption key is missing, malformed or does
	// not match the one the file was written with.
	ErrEncryption = errors.New("engine: invalid encryption key")
	// ErrSchemaMismatch means the file carries an incompatible schema
	// version and no migration was provided.
	ErrSchemaMismatch = errors.New("engine: schema version mismatch")
	// ErrTooManyVersions means pinning one more version would exceed the
	// configured MaxActiveVersions.
	ErrTooManyVersions = errors.New("engine: max active versions exceeded")
	// ErrDeleted means a frozen reference points at an object that was
	// deleted by a later commit.
	ErrDeleted = errors.New("engine: object was deleted")
	// ErrConnClosed means the connection was already closed.
	ErrConnClosed = errors.New("engine: connection closed")
)
