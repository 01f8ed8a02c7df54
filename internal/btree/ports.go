package btree

import (
	"context"

	"github.com/RichardKnop/minibtree/internal/pager"
)

type PageID = pager.PageID

const InvalidPageID = pager.InvalidPageID

// PageProvider is the buffer manager surface used by the tree. NewPage returns
// a zeroed frame that is already pinned.
type PageProvider interface {
	NewPage(ctx context.Context) (PageID, []byte, error)
	PinPage(ctx context.Context, pageID PageID) ([]byte, error)
	UnpinPage(ctx context.Context, pageID PageID, dirty bool) error
	FreePage(ctx context.Context, pageID PageID) error
}

// FileDirectory maps tree names to their header pages.
type FileDirectory interface {
	LookupFileEntry(ctx context.Context, name string) (PageID, bool, error)
	CreateFileEntry(ctx context.Context, name string, pageID PageID) error
	DeleteFileEntry(ctx context.Context, name string) error
}

type Storage interface {
	PageProvider
	FileDirectory
}
