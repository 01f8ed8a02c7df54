// Package minibtree stores B+ tree secondary indexes in a single page file.
// Index names are kept in a catalog directory next to the page file.
package minibtree

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/RichardKnop/minibtree/internal/btree"
	"github.com/RichardKnop/minibtree/internal/catalog"
	"github.com/RichardKnop/minibtree/internal/pager"
)

type (
	Tree         = btree.Tree
	Scan         = btree.Scan
	Entry        = btree.Entry
	RID          = btree.RID
	PageID       = btree.PageID
	KeyType      = btree.KeyType
	DeletePolicy = btree.DeletePolicy
	Tracer       = btree.Tracer
	Stats        = pager.Stats
)

const (
	IntegerKey  = btree.IntegerKey
	StringKey   = btree.StringKey
	NaiveDelete = btree.NaiveDelete
	FullDelete  = btree.FullDelete
	MaxKeySize  = btree.MaxKeySize
)

var (
	ErrFileNotFound      = btree.ErrFileNotFound
	ErrUnsupportedPolicy = btree.ErrUnsupportedPolicy
	ErrKeyFormat         = btree.ErrKeyFormat
	ErrTreeClosed        = btree.ErrTreeClosed
	ErrNoCurrentEntry    = btree.ErrNoCurrentEntry
	ErrStorageClosed     = fmt.Errorf("storage closed")
)

const (
	defaultPageCacheSize    = 1000
	defaultCatalogCacheSize = 128
	catalogSuffix           = ".catalog"
)

// backend joins the buffer manager and the catalog into the storage the
// trees are built on.
type backend struct {
	*pager.BufferManager
	*catalog.Directory
}

// Storage owns a page file, its catalog and the indexes opened from it.
type Storage struct {
	logger           *zap.Logger
	path             string
	pageCacheSize    int
	catalogCacheSize int
	tracer           *btree.Tracer
	ownsTracer       bool

	pager   *pager.BufferManager
	catalog *catalog.Directory
	backend backend
	indexes map[string]*btree.Tree
	closed  bool

	mu sync.Mutex
}

// Open opens the page file at path, creating it when missing, together with
// the catalog directory at path + ".catalog".
func Open(ctx context.Context, logger *zap.Logger, path string, opts ...Option) (*Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Storage{
		logger:           logger,
		path:             path,
		pageCacheSize:    defaultPageCacheSize,
		catalogCacheSize: defaultCatalogCacheSize,
		indexes:          make(map[string]*btree.Tree),
	}
	for _, opt := range opts {
		opt(s)
	}

	dbFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open page file: %w", err)
	}

	aPager, err := pager.New(logger, dbFile, pager.WithCacheSize(s.pageCacheSize))
	if err != nil {
		dbFile.Close()
		return nil, fmt.Errorf("failed to create pager: %w", err)
	}

	aCatalog, err := catalog.Open(logger, path+catalogSuffix, catalog.WithCacheSize(s.catalogCacheSize))
	if err != nil {
		aPager.Close()
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	s.pager = aPager
	s.catalog = aCatalog
	s.backend = backend{BufferManager: aPager, Directory: aCatalog}

	return s, nil
}

// CreateIndex opens the named index, creating an empty one with naive delete
// when it does not exist yet.
func (s *Storage) CreateIndex(ctx context.Context, name string, keyType KeyType, keySize int) (*Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStorageClosed
	}
	if aTree, ok := s.openIndex(name); ok {
		return aTree, nil
	}

	aTree, err := btree.OpenOrCreate(ctx, s.logger, s.backend, name, keyType, keySize, btree.NaiveDelete, s.treeOptions()...)
	if err != nil {
		return nil, err
	}
	s.indexes[name] = aTree

	return aTree, nil
}

// OpenIndex opens an existing index. Opening an index twice returns the same
// tree.
func (s *Storage) OpenIndex(ctx context.Context, name string) (*Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStorageClosed
	}
	return s.loadIndex(ctx, name)
}

// DropIndex frees every page of the named index and removes it from the
// catalog.
func (s *Storage) DropIndex(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStorageClosed
	}
	aTree, err := s.loadIndex(ctx, name)
	if err != nil {
		return err
	}
	delete(s.indexes, name)

	return aTree.Destroy(ctx)
}

// Indexes lists index names in ascending order.
func (s *Storage) Indexes(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStorageClosed
	}
	return s.catalog.Names(ctx)
}

func (s *Storage) Stats() Stats {
	return s.pager.Stats()
}

// Close closes every open index, then the catalog and the page file.
func (s *Storage) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	for name, aTree := range s.indexes {
		if err := aTree.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close index %s: %w", name, err)
		}
	}
	s.indexes = nil

	if err := s.catalog.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close catalog: %w", err)
	}

	stats := s.pager.Stats()
	if err := s.pager.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close pager: %w", err)
	}

	if s.ownsTracer {
		if err := s.tracer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close tracer: %w", err)
		}
	}

	s.logger.Sugar().With(
		"path", s.path,
		"stats", stats.String(),
	).Debug("closed storage")

	return firstErr
}

func (s *Storage) loadIndex(ctx context.Context, name string) (*Tree, error) {
	if aTree, ok := s.openIndex(name); ok {
		return aTree, nil
	}
	aTree, err := btree.Open(ctx, s.logger, s.backend, name, s.treeOptions()...)
	if err != nil {
		return nil, err
	}
	s.indexes[name] = aTree
	return aTree, nil
}

// openIndex returns a tree opened earlier, forgetting it when the caller has
// closed it in the meantime.
func (s *Storage) openIndex(name string) (*Tree, bool) {
	aTree, ok := s.indexes[name]
	if !ok {
		return nil, false
	}
	if aTree.IsClosed() {
		delete(s.indexes, name)
		return nil, false
	}
	return aTree, true
}

func (s *Storage) treeOptions() []btree.Option {
	if s.tracer == nil {
		return nil
	}
	return []btree.Option{btree.WithTracer(s.tracer)}
}

func NewTracer(path string) (*Tracer, error) {
	return btree.NewFileTracer(path)
}
