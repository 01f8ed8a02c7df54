// Package catalog keeps the file directory of a page file: a mapping from
// index names to the page id of their header page, stored in pebble.
package catalog

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"go.uber.org/zap"

	"github.com/RichardKnop/minibtree/internal/pager"
	"github.com/RichardKnop/minibtree/pkg/lrucache"
)

const (
	keyPrefix        = "file/"
	defaultCacheSize = 128
)

var (
	ErrEntryExists   = fmt.Errorf("file entry already exists")
	ErrEntryNotFound = fmt.Errorf("file entry not found")
	ErrInvalidName   = fmt.Errorf("invalid file entry name")
)

// Directory maps file entry names to header page ids. Lookups go through
// an LRU cache in front of pebble.
type Directory struct {
	logger    *zap.Logger
	db        *pebble.DB
	fs        vfs.FS
	cacheSize int
	cache     *lrucache.Cache[string, pager.PageID]
}

type Option func(*Directory)

// WithFS makes pebble use the given file system, vfs.NewMem() in tests.
func WithFS(fs vfs.FS) Option {
	return func(d *Directory) {
		d.fs = fs
	}
}

func WithCacheSize(size int) Option {
	return func(d *Directory) {
		d.cacheSize = size
	}
}

func Open(logger *zap.Logger, dir string, opts ...Option) (*Directory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Directory{
		logger:    logger,
		cacheSize: defaultCacheSize,
	}
	for _, opt := range opts {
		opt(d)
	}

	pebbleOpts := &pebble.Options{}
	if d.fs != nil {
		pebbleOpts.FS = d.fs
	}
	db, err := pebble.Open(dir, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("catalog: open: %w", err)
	}
	d.db = db
	d.cache = lrucache.New[string, pager.PageID](d.cacheSize)

	return d, nil
}

func (d *Directory) Close() error {
	return d.db.Close()
}

// LookupFileEntry returns the header page id registered under name.
func (d *Directory) LookupFileEntry(ctx context.Context, name string) (pager.PageID, bool, error) {
	if pageID, ok := d.cache.Get(name); ok {
		return pageID, true, nil
	}

	pageID, ok, err := d.get(name)
	if err != nil || !ok {
		return pager.InvalidPageID, ok, err
	}
	d.cache.Put(name, pageID)

	return pageID, true, nil
}

func (d *Directory) CreateFileEntry(ctx context.Context, name string, pageID pager.PageID) error {
	if err := checkName(name); err != nil {
		return err
	}
	_, ok, err := d.get(name)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: %s", ErrEntryExists, name)
	}

	value := make([]byte, 4)
	binary.LittleEndian.PutUint32(value, uint32(pageID))
	if err := d.db.Set(encodeKey(name), value, pebble.Sync); err != nil {
		return fmt.Errorf("catalog: set: %w", err)
	}
	d.cache.Put(name, pageID)

	d.logger.Sugar().With(
		"name", name,
		"header_page", int(pageID),
	).Debug("created file entry")

	return nil
}

func (d *Directory) DeleteFileEntry(ctx context.Context, name string) error {
	_, ok, err := d.get(name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	d.cache.Delete(name)
	if err := d.db.Delete(encodeKey(name), pebble.Sync); err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}

	d.logger.Sugar().With("name", name).Debug("deleted file entry")

	return nil
}

// Names lists all file entry names in ascending order.
func (d *Directory) Names(ctx context.Context) ([]string, error) {
	iter, err := d.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: prefixUpperBound(keyPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: iterate: %w", err)
	}
	defer iter.Close()

	var names []string
	for iter.First(); iter.Valid(); iter.Next() {
		names = append(names, strings.TrimPrefix(string(iter.Key()), keyPrefix))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("catalog: iterate: %w", err)
	}

	return names, nil
}

func (d *Directory) get(name string) (pager.PageID, bool, error) {
	value, closer, err := d.db.Get(encodeKey(name))
	if errors.Is(err, pebble.ErrNotFound) {
		return pager.InvalidPageID, false, nil
	}
	if err != nil {
		return pager.InvalidPageID, false, fmt.Errorf("catalog: get: %w", err)
	}
	defer closer.Close()

	if len(value) != 4 {
		return pager.InvalidPageID, false, fmt.Errorf("catalog: entry %s has %d byte value", name, len(value))
	}

	return pager.PageID(binary.LittleEndian.Uint32(value)), true, nil
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	return nil
}

func encodeKey(name string) []byte {
	return []byte(keyPrefix + name)
}

func prefixUpperBound(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}
