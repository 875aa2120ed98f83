package tts

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"sublingo/internal/logging"
)

// Cache stores synthesized audio clips keyed by the synthesis inputs.
type Cache struct {
	db *badger.DB
}

// CacheOptions configures the clip cache.
type CacheOptions struct {
	// Dir is the directory for the cache data files. Required unless
	// InMemory is set.
	Dir string
	// InMemory runs the cache without disk persistence, for tests.
	InMemory bool
	// Logger receives cache engine warnings. Optional.
	Logger *slog.Logger
}

// OpenCache opens (or creates) a clip cache.
func OpenCache(opts CacheOptions) (*Cache, error) {
	if !opts.InMemory && strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("tts cache: directory is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true).WithDir("").WithValueDir("")
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logger: logging.NewComponentLogger(opts.Logger, "tts-cache")})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("tts cache: open: %w", err)
	}
	return &Cache{db: db}, nil
}

// ClipKey derives the cache key for one synthesis input combination.
func ClipKey(text, language, speaker, model string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + language + "\x00" + speaker + "\x00" + model))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached clip bytes for a key, if present.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	if c == nil || c.db == nil {
		return nil, false, nil
	}
	var clip []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		clip, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("tts cache: get: %w", err)
	}
	return clip, true, nil
}

// Put stores a synthesized clip under the given key.
func (c *Cache) Put(key string, clip []byte) error {
	if c == nil || c.db == nil {
		return nil
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), clip)
	})
	if err != nil {
		return fmt.Errorf("tts cache: put: %w", err)
	}
	return nil
}

// Close releases the cache database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// badgerLogger adapts slog to the badger logger interface, dropping the
// engine's chatty info and debug output.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
	}
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
	}
}

func (badgerLogger) Infof(string, ...interface{})  {}
func (badgerLogger) Debugf(string, ...interface{}) {}
