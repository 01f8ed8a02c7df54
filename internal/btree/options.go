package btree

type Option func(*Tree)

// WithTracer writes a VISIT line for every page an operation touches.
func WithTracer(aTracer *Tracer) Option {
	return func(t *Tree) {
		t.tracer = aTracer
	}
}
