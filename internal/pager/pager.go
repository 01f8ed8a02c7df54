package pager

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const (
	PageSize = 4096 // 4 kilobytes

	// Page type bytes owned by the pager. Page types of the pages handed out
	// to callers are up to the callers, they only have to avoid these two.
	PageTypeMeta byte = 0xF0
	PageTypeFree byte = 0xF1

	defaultCacheSize = 1000
)

type PageID uint32

const InvalidPageID PageID = math.MaxUint32

var (
	ErrInvalidPage   = fmt.Errorf("invalid page")
	ErrPageNotPinned = fmt.Errorf("page not pinned")
	ErrPagePinned    = fmt.Errorf("page is pinned")
	ErrClosed        = fmt.Errorf("pager closed")
)

type DBFile interface {
	io.ReadSeeker
	io.ReaderAt
	io.WriterAt
	io.Closer
}

type frame struct {
	data  []byte
	pins  int
	dirty bool
}

// BufferManager hands out pinned page frames backed by a paged file.
// Frames only live in memory while pinned. On the last unpin a dirty frame
// is written through to the file and its clean image is kept in a ristretto
// cache so the next pin can skip the read.
type BufferManager struct {
	logger    *zap.Logger
	file      DBFile
	cacheSize int
	cache     *ristretto.Cache[uint32, []byte]

	meta   metaPage
	frames map[PageID]*frame
	stats  Stats
	closed bool

	mu sync.Mutex
}

// New opens the paged file and reads the meta page, initializing a new
// meta page when the file is empty.
func New(logger *zap.Logger, file DBFile, opts ...Option) (*BufferManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &BufferManager{
		logger:    logger,
		file:      file,
		cacheSize: defaultCacheSize,
		frames:    make(map[PageID]*frame),
	}
	for _, opt := range opts {
		opt(p)
	}

	cache, err := ristretto.NewCache(&ristretto.Config[uint32, []byte]{
		NumCounters: int64(p.cacheSize) * 10,
		MaxCost:     int64(p.cacheSize),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("page cache: %w", err)
	}
	p.cache = cache

	fileSize, err := p.file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	// Basic check to verify file size is a multiple of page size (4096B)
	if fileSize%int64(PageSize) != 0 {
		return nil, fmt.Errorf("db file size is not divisible by page size: %d", fileSize)
	}

	if fileSize == 0 {
		p.meta = metaPage{
			TotalPages: 1,
			FreeHead:   InvalidPageID,
		}
		if err := p.writeMeta(); err != nil {
			return nil, err
		}
	} else {
		buf := make([]byte, PageSize)
		if _, err := p.file.ReadAt(buf, 0); err != nil {
			return nil, fmt.Errorf("read meta page: %w", err)
		}
		if err := p.meta.Unmarshal(buf); err != nil {
			return nil, err
		}
	}

	p.logger.Sugar().With(
		"total_pages", int(p.meta.TotalPages),
		"free_pages", int(p.meta.FreePages),
		"cache", humanize.IBytes(uint64(p.cacheSize)*PageSize),
	).Debug("opened page file")

	return p, nil
}

// NewPage allocates a page, reusing the head of the free list when there is
// one. The returned frame is zeroed and pinned.
func (p *BufferManager) NewPage(ctx context.Context) (PageID, []byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return InvalidPageID, nil, ErrClosed
	}

	var (
		pageID PageID
		reused bool
	)
	if p.meta.FreeHead != InvalidPageID {
		pageID = p.meta.FreeHead
		buf := make([]byte, PageSize)
		if _, err := p.file.ReadAt(buf, offset(pageID)); err != nil {
			return InvalidPageID, nil, fmt.Errorf("read free page %d: %w", pageID, err)
		}
		var aFreePage FreePage
		if err := aFreePage.Unmarshal(buf); err != nil {
			return InvalidPageID, nil, err
		}
		p.meta.FreeHead = aFreePage.NextFreePage
		p.meta.FreePages -= 1
		reused = true
	} else {
		pageID = PageID(p.meta.TotalPages)
		p.meta.TotalPages += 1
	}

	if err := p.writeMeta(); err != nil {
		return InvalidPageID, nil, err
	}

	p.cache.Del(uint32(pageID))
	aFrame := &frame{
		data:  make([]byte, PageSize),
		pins:  1,
		dirty: true,
	}
	p.frames[pageID] = aFrame
	p.stats.Allocated += 1
	p.stats.Pins += 1

	p.logger.Sugar().With(
		"page", int(pageID),
		"reused", reused,
	).Debug("allocate page")

	return pageID, aFrame.data, nil
}

// PinPage returns the frame of an allocated page. Every successful call must
// be matched by exactly one UnpinPage.
func (p *BufferManager) PinPage(ctx context.Context, pageID PageID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if err := p.checkPageID(pageID); err != nil {
		return nil, err
	}

	if aFrame, ok := p.frames[pageID]; ok {
		aFrame.pins += 1
		p.stats.Pins += 1
		return aFrame.data, nil
	}

	buf := make([]byte, PageSize)
	if cached, ok := p.cache.Get(uint32(pageID)); ok && len(cached) == PageSize {
		copy(buf, cached)
		p.stats.CacheHits += 1
	} else {
		if _, err := p.file.ReadAt(buf, offset(pageID)); err != nil {
			return nil, fmt.Errorf("read page %d: %w", pageID, err)
		}
		p.stats.CacheMisses += 1
	}

	if buf[0] == PageTypeFree {
		return nil, fmt.Errorf("%w: page %d is on the free list", ErrInvalidPage, pageID)
	}

	p.frames[pageID] = &frame{data: buf, pins: 1}
	p.stats.Pins += 1

	return buf, nil
}

// UnpinPage releases one pin. Dirty state accumulates across pins and the
// frame is written back when the last pin goes away.
func (p *BufferManager) UnpinPage(ctx context.Context, pageID PageID, dirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	aFrame, ok := p.frames[pageID]
	if !ok || aFrame.pins == 0 {
		return fmt.Errorf("%w: %d", ErrPageNotPinned, pageID)
	}

	aFrame.dirty = aFrame.dirty || dirty
	aFrame.pins -= 1
	p.stats.Unpins += 1

	if aFrame.pins > 0 {
		return nil
	}

	if aFrame.dirty {
		if _, err := p.file.WriteAt(aFrame.data, offset(pageID)); err != nil {
			return fmt.Errorf("write page %d: %w", pageID, err)
		}
		aFrame.dirty = false
	}

	delete(p.frames, pageID)

	// Delete first so a stale image still sitting in the set buffer can not
	// outlive this one if the Set below gets dropped.
	p.cache.Del(uint32(pageID))
	p.cache.Set(uint32(pageID), clone(aFrame.data), 1)

	return nil
}

// FreePage puts an unpinned page at the head of the free list.
func (p *BufferManager) FreePage(ctx context.Context, pageID PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if err := p.checkPageID(pageID); err != nil {
		return err
	}
	if aFrame, ok := p.frames[pageID]; ok {
		if aFrame.pins > 0 {
			return fmt.Errorf("%w: %d", ErrPagePinned, pageID)
		}
		delete(p.frames, pageID)
	}

	buf := make([]byte, PageSize)
	aFreePage := FreePage{NextFreePage: p.meta.FreeHead}
	if err := aFreePage.Marshal(buf); err != nil {
		return err
	}
	if _, err := p.file.WriteAt(buf, offset(pageID)); err != nil {
		return fmt.Errorf("write free page %d: %w", pageID, err)
	}
	p.cache.Del(uint32(pageID))

	p.meta.FreeHead = pageID
	p.meta.FreePages += 1
	p.stats.Freed += 1

	p.logger.Sugar().With(
		"page", int(pageID),
		"free_pages", int(p.meta.FreePages),
	).Debug("free page")

	return p.writeMeta()
}

// Flush writes back any unpinned frames left dirty by a failed write and
// the meta page.
func (p *BufferManager) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.flush()
}

func (p *BufferManager) flush() error {
	for pageID, aFrame := range p.frames {
		if aFrame.pins > 0 || !aFrame.dirty {
			continue
		}
		if _, err := p.file.WriteAt(aFrame.data, offset(pageID)); err != nil {
			return fmt.Errorf("write page %d: %w", pageID, err)
		}
		delete(p.frames, pageID)
	}
	return p.writeMeta()
}

func (p *BufferManager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	if pinned := p.pinnedFrames(); pinned > 0 {
		p.logger.Sugar().With("pinned", pinned).Warn("closing page file with pinned pages")
	}
	if err := p.flush(); err != nil {
		return err
	}

	p.closed = true
	p.cache.Close()

	return p.file.Close()
}

func (p *BufferManager) TotalPages() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.meta.TotalPages
}

func (p *BufferManager) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	s.TotalPages = p.meta.TotalPages
	s.FreePages = p.meta.FreePages
	s.Pinned = p.pinnedFrames()
	return s
}

func (p *BufferManager) pinnedFrames() int {
	pinned := 0
	for _, aFrame := range p.frames {
		if aFrame.pins > 0 {
			pinned += 1
		}
	}
	return pinned
}

func (p *BufferManager) checkPageID(pageID PageID) error {
	if pageID == 0 || pageID == InvalidPageID || uint32(pageID) >= p.meta.TotalPages {
		return fmt.Errorf("%w: %d out of %d pages", ErrInvalidPage, pageID, p.meta.TotalPages)
	}
	return nil
}

func (p *BufferManager) writeMeta() error {
	buf := make([]byte, PageSize)
	if err := p.meta.Marshal(buf); err != nil {
		return err
	}
	if _, err := p.file.WriteAt(buf, 0); err != nil {
		return fmt.Errorf("write meta page: %w", err)
	}
	return nil
}

func offset(pageID PageID) int64 {
	return int64(pageID) * int64(PageSize)
}

func clone(buf []byte) []byte {
	aCopy := make([]byte, len(buf))
	copy(aCopy, buf)
	return aCopy
}
