package minibtree

type Option func(*Storage)

// WithPageCacheSize sets how many clean pages the buffer manager caches.
func WithPageCacheSize(pages int) Option {
	return func(s *Storage) {
		s.pageCacheSize = pages
	}
}

func WithCatalogCacheSize(entries int) Option {
	return func(s *Storage) {
		s.catalogCacheSize = entries
	}
}

// WithTracer traces page visits of every index opened from the storage.
func WithTracer(aTracer *Tracer) Option {
	return func(s *Storage) {
		s.tracer = aTracer
	}
}
