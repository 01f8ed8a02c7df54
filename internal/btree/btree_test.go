package btree

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RichardKnop/minibtree/internal/pager"
	"github.com/RichardKnop/minibtree/internal/pkg/logging"
)

var testLogger *zap.Logger

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "debug"
	}

	var err error
	testLogger, err = logging.New(level)
	if err != nil {
		panic(err)
	}
}

type dataGen struct {
	*gofakeit.Faker
}

func newDataGen(seed uint64) *dataGen {
	return &dataGen{
		Faker: gofakeit.New(seed),
	}
}

func (g *dataGen) RID() RID {
	return RID{
		PageID: g.Uint32(),
		SlotNo: g.Uint16(),
	}
}

func (g *dataGen) IntKey(n int) int32 {
	return int32(g.IntRange(0, n))
}

// memStorage keeps pages in memory and counts allocations, frees and pins.
// Pinning a page twice hands out the same frame, like the buffer manager.
type memStorage struct {
	pages     map[PageID][]byte
	pins      map[PageID]int
	files     map[string]PageID
	nextID    PageID
	allocated int
	freed     int
}

func newMemStorage() *memStorage {
	return &memStorage{
		pages:  make(map[PageID][]byte),
		pins:   make(map[PageID]int),
		files:  make(map[string]PageID),
		nextID: 1,
	}
}

func (s *memStorage) NewPage(ctx context.Context) (PageID, []byte, error) {
	pageID := s.nextID
	s.nextID += 1
	s.pages[pageID] = make([]byte, pager.PageSize)
	s.pins[pageID] = 1
	s.allocated += 1
	return pageID, s.pages[pageID], nil
}

func (s *memStorage) PinPage(ctx context.Context, pageID PageID) ([]byte, error) {
	buf, ok := s.pages[pageID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", pager.ErrInvalidPage, pageID)
	}
	s.pins[pageID] += 1
	return buf, nil
}

func (s *memStorage) UnpinPage(ctx context.Context, pageID PageID, dirty bool) error {
	if s.pins[pageID] == 0 {
		return fmt.Errorf("%w: %d", pager.ErrPageNotPinned, pageID)
	}
	s.pins[pageID] -= 1
	return nil
}

func (s *memStorage) FreePage(ctx context.Context, pageID PageID) error {
	if _, ok := s.pages[pageID]; !ok {
		return fmt.Errorf("%w: %d", pager.ErrInvalidPage, pageID)
	}
	if s.pins[pageID] > 0 {
		return fmt.Errorf("%w: %d", pager.ErrPagePinned, pageID)
	}
	delete(s.pages, pageID)
	delete(s.pins, pageID)
	s.freed += 1
	return nil
}

func (s *memStorage) LookupFileEntry(ctx context.Context, name string) (PageID, bool, error) {
	pageID, ok := s.files[name]
	return pageID, ok, nil
}

func (s *memStorage) CreateFileEntry(ctx context.Context, name string, pageID PageID) error {
	s.files[name] = pageID
	return nil
}

func (s *memStorage) DeleteFileEntry(ctx context.Context, name string) error {
	delete(s.files, name)
	return nil
}

func (s *memStorage) pinnedPages() int {
	pinned := 0
	for _, pins := range s.pins {
		if pins > 0 {
			pinned += 1
		}
	}
	return pinned
}

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) NewPage(ctx context.Context) (PageID, []byte, error) {
	args := m.Called(ctx)
	buf, _ := args.Get(1).([]byte)
	return args.Get(0).(PageID), buf, args.Error(2)
}

func (m *MockStorage) PinPage(ctx context.Context, pageID PageID) ([]byte, error) {
	args := m.Called(ctx, pageID)
	buf, _ := args.Get(0).([]byte)
	return buf, args.Error(1)
}

func (m *MockStorage) UnpinPage(ctx context.Context, pageID PageID, dirty bool) error {
	args := m.Called(ctx, pageID, dirty)
	return args.Error(0)
}

func (m *MockStorage) FreePage(ctx context.Context, pageID PageID) error {
	args := m.Called(ctx, pageID)
	return args.Error(0)
}

func (m *MockStorage) LookupFileEntry(ctx context.Context, name string) (PageID, bool, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(PageID), args.Bool(1), args.Error(2)
}

func (m *MockStorage) CreateFileEntry(ctx context.Context, name string, pageID PageID) error {
	args := m.Called(ctx, name, pageID)
	return args.Error(0)
}

func (m *MockStorage) DeleteFileEntry(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func initTest(t *testing.T, opts ...Option) (*Tree, *memStorage) {
	t.Parallel()

	store := newMemStorage()
	aTree, err := OpenOrCreate(context.Background(), testLogger, store, "test_index", IntegerKey, 4, NaiveDelete, opts...)
	require.NoError(t, err)

	return aTree, store
}

func newTestGen() *dataGen {
	return newDataGen(uint64(time.Now().UnixNano()))
}

func ints(keys ...int32) []any {
	values := make([]any, 0, len(keys))
	for _, k := range keys {
		values = append(values, k)
	}
	return values
}

func collectNodes(t *testing.T, aTree *Tree) map[PageID]Node {
	nodes := map[PageID]Node{}
	err := aTree.BFS(context.Background(), func(pageID PageID, aNode Node) {
		nodes[pageID] = aNode
	})
	require.NoError(t, err)
	return nodes
}

func assertLeafNode(t *testing.T, aNode Node, prev, next PageID, keys []any) {
	t.Helper()
	aLeaf, ok := aNode.(*LeafNode)
	require.True(t, ok, "expected a leaf, got %T", aNode)
	assert.Equal(t, prev, aLeaf.Prev, "prev")
	assert.Equal(t, next, aLeaf.Next, "next")
	assert.Equal(t, keys, aLeaf.Keys())
}

func assertIndexNode(t *testing.T, aNode Node, keys []any, children []PageID) {
	t.Helper()
	anIndex, ok := aNode.(*IndexNode)
	require.True(t, ok, "expected an index page, got %T", aNode)
	assert.Equal(t, keys, anIndex.Keys())
	assert.Equal(t, children, anIndex.Children())
}

func scanAll(t *testing.T, aTree *Tree, lo, hi any) []Entry {
	t.Helper()
	ctx := context.Background()

	aScan, err := aTree.NewScan(ctx, lo, hi)
	require.NoError(t, err)
	defer aScan.Close(ctx)

	var entries []Entry
	for {
		anEntry, ok, err := aScan.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		entries = append(entries, anEntry)
	}
	return entries
}

func entryKeys(entries []Entry) []any {
	keys := make([]any, 0, len(entries))
	for _, anEntry := range entries {
		keys = append(keys, anEntry.Key)
	}
	return keys
}
