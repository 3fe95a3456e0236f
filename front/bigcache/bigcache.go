package bigcache

import (
	"time"

	bc "github.com/allegro/bigcache/v3"

	fr "github.com/unkn0wn-root/offcache/front"
)

type Front struct {
	c *bc.BigCache
}

var _ fr.Front = (*Front)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Front, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Front{c: c}, nil
}

func (f *Front) Get(key string) ([]byte, bool) {
	b, err := f.c.Get(key)
	if err != nil {
		return nil, false
	}
	return b, true
}

func (f *Front) Set(key string, value []byte) {
	_ = f.c.Set(key, value)
}

func (f *Front) Del(key string) { _ = f.c.Delete(key) }

func (f *Front) Clear() { _ = f.c.Reset() }

func (f *Front) Close() error { return f.c.Close() }
