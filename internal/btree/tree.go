package btree

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Tree is a B+ tree secondary index mapping keys to record ids. The header
// page stays pinned while the tree is open, every other page is pinned only
// for the duration of a single operation. A Tree is not safe for concurrent
// use.
type Tree struct {
	logger *zap.Logger
	store  Storage
	tracer *Tracer
	name   string

	headerID  PageID
	headerBuf []byte
	header    HeaderRecord
	closed    bool

	// Entry count limits used by tests to force splits, zero means the page
	// size is the only limit.
	maxLeafEntries  int
	maxIndexEntries int
}

func newTree(logger *zap.Logger, store Storage, name string, opts ...Option) *Tree {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tree{
		logger: logger,
		store:  store,
		name:   name,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open opens an existing tree by name.
func Open(ctx context.Context, logger *zap.Logger, store Storage, name string, opts ...Option) (*Tree, error) {
	headerID, ok, err := store.LookupFileEntry(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup file entry: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}

	t := newTree(logger, store, name, opts...)
	if err := t.pinHeader(ctx, headerID); err != nil {
		return nil, err
	}

	t.logger.Sugar().With(
		"name", name,
		"root", int(t.header.RootPageID),
		"key_type", t.header.KeyType.String(),
	).Debug("opened index")

	return t, nil
}

// OpenOrCreate opens the named tree, creating an empty one when no file entry
// exists. Metadata of an existing tree wins over the arguments.
func OpenOrCreate(ctx context.Context, logger *zap.Logger, store Storage, name string, keyType KeyType, keySize int, policy DeletePolicy, opts ...Option) (*Tree, error) {
	maxKeySize, err := checkKeyFormat(keyType, keySize)
	if err != nil {
		return nil, err
	}
	if policy != NaiveDelete && policy != FullDelete {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPolicy, policy)
	}

	_, ok, err := store.LookupFileEntry(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup file entry: %w", err)
	}
	if ok {
		return Open(ctx, logger, store, name, opts...)
	}

	t := newTree(logger, store, name, opts...)

	headerID, buf, err := store.NewPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate header page: %w", err)
	}
	t.headerID = headerID
	t.headerBuf = buf
	t.header = HeaderRecord{
		Magic:        headerMagic,
		RootPageID:   InvalidPageID,
		KeyType:      keyType,
		MaxKeySize:   maxKeySize,
		DeletePolicy: policy,
	}
	if err := t.header.Marshal(buf); err != nil {
		return nil, t.abandonHeader(ctx, err)
	}

	if err := store.CreateFileEntry(ctx, name, headerID); err != nil {
		return nil, t.abandonHeader(ctx, fmt.Errorf("create file entry: %w", err))
	}

	t.logger.Sugar().With(
		"name", name,
		"header_page", int(headerID),
		"key_type", keyType.String(),
		"key_size", int(maxKeySize),
		"delete_policy", policy.String(),
	).Debug("created index")

	return t, nil
}

func (t *Tree) pinHeader(ctx context.Context, headerID PageID) error {
	buf, err := t.store.PinPage(ctx, headerID)
	if err != nil {
		return fmt.Errorf("pin header page %d: %w", headerID, err)
	}
	if err := t.header.Unmarshal(buf); err != nil {
		if unpinErr := t.store.UnpinPage(ctx, headerID, false); unpinErr != nil {
			t.logger.Sugar().With("page", int(headerID), "error", unpinErr).Warn("unpin header page")
		}
		return fmt.Errorf("header page %d: %w", headerID, err)
	}
	t.headerID = headerID
	t.headerBuf = buf
	return nil
}

func (t *Tree) abandonHeader(ctx context.Context, cause error) error {
	if err := t.store.UnpinPage(ctx, t.headerID, false); err != nil {
		t.logger.Sugar().With("page", int(t.headerID), "error", err).Warn("unpin header page")
		return cause
	}
	if err := t.store.FreePage(ctx, t.headerID); err != nil {
		t.logger.Sugar().With("page", int(t.headerID), "error", err).Warn("free header page")
	}
	return cause
}

func (t *Tree) setRoot(pageID PageID) error {
	t.header.RootPageID = pageID
	return t.header.Marshal(t.headerBuf)
}

// Close writes the header back and releases it. Closing twice is a no-op,
// a Close that failed to release the header can be retried.
func (t *Tree) Close(ctx context.Context) error {
	if t.closed {
		return nil
	}

	if err := t.header.Marshal(t.headerBuf); err != nil {
		return err
	}
	// The header stays pinned on failure so Close can be retried.
	if err := t.store.UnpinPage(ctx, t.headerID, true); err != nil {
		return fmt.Errorf("unpin header page %d: %w", t.headerID, err)
	}
	t.closed = true

	t.logger.Sugar().With("name", t.name).Debug("closed index")

	return nil
}

func (t *Tree) Name() string {
	return t.name
}

func (t *Tree) Header() HeaderRecord {
	return t.header
}

func (t *Tree) KeyType() KeyType {
	return t.header.KeyType
}

func (t *Tree) MaxKeySize() int {
	return int(t.header.MaxKeySize)
}

func (t *Tree) RootPageID() PageID {
	return t.header.RootPageID
}

func (t *Tree) IsClosed() bool {
	return t.closed
}

func (t *Tree) checkOpen() error {
	if t.closed {
		return fmt.Errorf("%w: %s", ErrTreeClosed, t.name)
	}
	return nil
}

func (t *Tree) normalizeKey(key any) (any, error) {
	return normalizeKey(t.header.KeyType, t.header.MaxKeySize, key)
}
