package database

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cryodb/cryo/app/logger"
	"github.com/cryodb/cryo/engine"
	"github.com/cryodb/cryo/engine/memengine"
	"github.com/cryodb/cryo/metric"
)

// OpenEngineFunc binds the client layer to a storage engine implementation.
type OpenEngineFunc func(cfg engine.Config) (engine.Conn, error)

type Config struct {
	// Path of the database file. memengine additionally accepts
	// ":memory:<name>" paths for shared in-memory databases.
	Path string `yaml:"path"`
	// SchemaVersion the caller's object model expects.
	SchemaVersion uint32 `yaml:"schemaVersion"`
	// MaxActiveVersions caps pinned versions; zero means unbounded.
	MaxActiveVersions int `yaml:"maxActiveVersions"`
	// EncryptionKey of exactly engine.KeyLength bytes, or nil.
	EncryptionKey []byte `yaml:"-"`

	// Logger, when set, is applied process-wide before the handle opens.
	Logger *logger.Config `yaml:"logger"`
	Metric metric.Config  `yaml:"metric"`

	// WriteQueueSize bounds the writer's pending-transaction queue.
	WriteQueueSize int `yaml:"writeQueueSize"`
	// StreamBufferSize bounds every notification stream. Slow consumers get
	// backpressure up to PublishTimeout, not drops.
	StreamBufferSize int `yaml:"streamBufferSize"`
	// PublishTimeout is how long the notifier waits on one stalled
	// subscriber before dropping the event for that subscriber and logging.
	PublishTimeout time.Duration `yaml:"publishTimeout"`

	// ActiveVersionsWarnThreshold logs a warning when the pinned version
	// count grows past it; zero disables the check.
	ActiveVersionsWarnThreshold int `yaml:"activeVersionsWarnThreshold"`
	// ActiveVersionsCheckSeconds is the refresh period for the
	// active-versions gauge.
	ActiveVersionsCheckSeconds int `yaml:"activeVersionsCheckSeconds"`

	// Migrate upgrades data written with an older SchemaVersion.
	Migrate engine.MigrateFunc `yaml:"-"`
	// OpenEngine overrides the storage engine; defaults to memengine.Open.
	OpenEngine OpenEngineFunc `yaml:"-"`
}

const (
	defaultWriteQueueSize      = 10
	defaultStreamBufferSize    = 64
	defaultPublishTimeout      = 5 * time.Second
	defaultActiveVersionsCheck = 10
)

// NewConfigFromFile reads a yaml config.
func NewConfigFromFile(path string) (c *Config, err error) {
	c = &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return
}

func (c Config) withDefaults() Config {
	if c.WriteQueueSize <= 0 {
		c.WriteQueueSize = defaultWriteQueueSize
	}
	if c.StreamBufferSize <= 0 {
		c.StreamBufferSize = defaultStreamBufferSize
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = defaultPublishTimeout
	}
	if c.ActiveVersionsCheckSeconds <= 0 {
		c.ActiveVersionsCheckSeconds = defaultActiveVersionsCheck
	}
	if c.OpenEngine == nil {
		c.OpenEngine = memengine.Open
	}
	return c
}

func (c Config) validate() error {
	if c.Path == "" {
		return fmt.Errorf("database: config requires a path")
	}
	if len(c.EncryptionKey) != 0 && len(c.EncryptionKey) != engine.KeyLength {
		return fmt.Errorf("%w: key must be %d bytes", engine.ErrEncryption, engine.KeyLength)
	}
	if c.MaxActiveVersions < 0 {
		return fmt.Errorf("database: maxActiveVersions must be >= 0")
	}
	return nil
}

func (c Config) engineConfig() engine.Config {
	return engine.Config{
		Path:              c.Path,
		SchemaVersion:     c.SchemaVersion,
		MaxActiveVersions: c.MaxActiveVersions,
		EncryptionKey:     c.EncryptionKey,
		Migrate:           c.Migrate,
	}
}
