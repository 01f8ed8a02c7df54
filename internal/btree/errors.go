package btree

import (
	"fmt"
)

var (
	ErrFileNotFound      = fmt.Errorf("file entry not found")
	ErrUnsupportedPolicy = fmt.Errorf("unsupported delete policy")
	ErrKeyFormat         = fmt.Errorf("key format error")
	ErrTreeClosed        = fmt.Errorf("tree closed")
	ErrCorruptPage       = fmt.Errorf("corrupt page")
	ErrNoCurrentEntry    = fmt.Errorf("no current entry")
	ErrPageFull          = fmt.Errorf("page full")
)
