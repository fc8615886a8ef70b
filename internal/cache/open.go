package cache

import (
	"io"

	"github.com/GriffinCanCode/onboard/internal/infrastructure/config"
	"github.com/GriffinCanCode/onboard/internal/storage"
)

// Open builds a cache from configuration. A directory persists entries
// across runs; without one they live in memory.
func Open(cfg config.CacheConfig, opts Options) (*Cache, error) {
	opts.Disabled = opts.Disabled || cfg.Disabled
	if cfg.Dir == "" || opts.Disabled {
		return New(storage.NewMemoryStore(), opts), nil
	}
	store, err := storage.NewFileStore(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return New(store, opts), nil
}

// Close releases the backing store if it holds resources
func (c *Cache) Close() error {
	if cl, ok := c.store.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}
