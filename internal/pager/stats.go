package pager

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

type Stats struct {
	TotalPages  uint32
	FreePages   uint32
	Pinned      int
	Allocated   uint64
	Freed       uint64
	Pins        uint64
	Unpins      uint64
	CacheHits   uint64
	CacheMisses uint64
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"%s pages (%s), %s free, %d pinned, %s allocated, %s freed, cache %s hits / %s misses",
		humanize.Comma(int64(s.TotalPages)),
		humanize.IBytes(uint64(s.TotalPages)*PageSize),
		humanize.Comma(int64(s.FreePages)),
		s.Pinned,
		humanize.Comma(int64(s.Allocated)),
		humanize.Comma(int64(s.Freed)),
		humanize.Comma(int64(s.CacheHits)),
		humanize.Comma(int64(s.CacheMisses)),
	)
}
