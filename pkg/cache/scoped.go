package cache

// ScopedKeyer wraps a Keyer with a prefix so that several pipelines can
// share one backend (for example one Redis instance) without collisions.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "experiment-7:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// GraphKey generates a prefixed key for kNN graph caching.
func (k *ScopedKeyer) GraphKey(inputHash string, opts GraphKeyOpts) string {
	return k.prefix + k.inner.GraphKey(inputHash, opts)
}

// EmbeddingKey generates a prefixed key for embedding caching.
func (k *ScopedKeyer) EmbeddingKey(graphHash string, opts EmbeddingKeyOpts) string {
	return k.prefix + k.inner.EmbeddingKey(graphHash, opts)
}
