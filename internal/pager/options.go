package pager

type Option func(*BufferManager)

// WithCacheSize sets how many clean page images are kept between pins.
func WithCacheSize(pages int) Option {
	return func(p *BufferManager) {
		if pages > 0 {
			p.cacheSize = pages
		}
	}
}
