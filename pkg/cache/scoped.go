package cache

// RedisScope is the key prefix used when several processes share one Redis.
const RedisScope = "gridcollage:"

// ScopedKeyer prefixes every key of an inner Keyer, keeping deployments that
// share a backend apart.
type ScopedKeyer struct {
	Keyer
	Prefix string
}

// NewScopedKeyer wraps inner, or the default keyer when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return ScopedKeyer{Keyer: inner, Prefix: prefix}
}

func (k ScopedKeyer) LayoutKey(template string, opts LayoutKeyOpts) string {
	return k.Prefix + k.Keyer.LayoutKey(template, opts)
}

func (k ScopedKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return k.Prefix + k.Keyer.ArtifactKey(layoutHash, opts)
}
