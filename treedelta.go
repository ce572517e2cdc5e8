package treedelta

import (
	"context"

	"github.com/treedelta/treedelta/delta"
	"github.com/treedelta/treedelta/match"
	"github.com/treedelta/treedelta/tree"
)

// Config are the tunables of a Differ.
type Config struct {
	// Radius is the fingerprint window radius k.
	Radius int
	// SearchRadius bounds the windowed anchor search in
	// document-order positions around an operation's path.
	SearchRadius int
	// Mode selects how application treats failing operations.
	Mode delta.Mode
	// Provide a non-nil stats pointer & Diff will populate it with
	// data from the diff process.
	Stats *Stats
}

// Option adjusts a config; zero or more Options can be passed to New.
type Option func(cfg *Config)

// OptionRadius sets the fingerprint window radius.
func OptionRadius(k int) Option {
	return func(cfg *Config) { cfg.Radius = k }
}

// OptionSearchRadius sets the anchor search radius.
func OptionSearchRadius(n int) Option {
	return func(cfg *Config) { cfg.SearchRadius = n }
}

// OptionBestEffort makes Apply skip failing operations instead of
// reverting the whole patch.
func OptionBestEffort() Option {
	return func(cfg *Config) { cfg.Mode = delta.BestEffort }
}

// OptionSetStats will set the passed-in stats pointer when Diff is
// called.
func OptionSetStats(st *Stats) Option {
	return func(cfg *Config) { cfg.Stats = st }
}

// Patch is an ordered list of detached context operations, the
// output of Diff and the input of Apply.
type Patch struct {
	Ops []*delta.Operation
}

// Len returns the operation count.
func (p *Patch) Len() int { return len(p.Ops) }

// Differ computes and applies patches for one configured set of
// tunables.
type Differ struct {
	cfg Config
}

// New creates a Differ, using the default configuration unless
// options say otherwise.
func New(opts ...Option) *Differ {
	cfg := Config{
		Radius:       delta.DefaultRadius,
		SearchRadius: delta.DefaultSearchRadius,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Differ{cfg: cfg}
}

// Diff computes the patch that turns document a into document b.
// Both documents must belong to fam. Diffing never mutates them.
func (d *Differ) Diff(ctx context.Context, fam Family, a, b interface{}) (*Patch, error) {
	ta, err := fam.Adapter.AdaptDocument(a)
	if err != nil {
		return nil, err
	}
	tb, err := fam.Adapter.AdaptDocument(b)
	if err != nil {
		return nil, err
	}

	m, err := match.Trees(ctx, ta, tb, fam.Hasher)
	if err != nil {
		return nil, err
	}

	idx := tree.NewDocumentOrderIndex(ta)
	idx.BuildAll()
	gen := delta.NewContextGenerator(idx, tree.NewNodeHashIndex(fam.Hasher), d.cfg.Radius)
	ops := delta.NewEditor(m, idx, gen).EditScript(ta, tb)

	if d.cfg.Stats != nil {
		d.cfg.Stats.collect(idx.Len(), tb.Size(), m.Len(), ops)
	}
	return &Patch{Ops: ops}, nil
}

// Apply binds every operation of p to an anchor in doc, applies the
// resulting hunks in order and returns the patched document together
// with the session owning the hunks. The session can toggle hunks and
// re-render through the family adapter until it is discarded.
func (d *Differ) Apply(ctx context.Context, fam Family, doc interface{}, p *Patch) (interface{}, *delta.Session, error) {
	root, err := fam.Adapter.AdaptDocument(doc)
	if err != nil {
		return nil, nil, err
	}
	resolver := delta.NewResolver(root, fam.Hasher, d.cfg.SearchRadius)
	session := delta.NewSession(fam.Handlers, d.cfg.Mode)
	if err := session.Apply(ctx, resolver, p.Ops); err != nil {
		return nil, nil, err
	}
	out, err := fam.Adapter.RenderDocument(root)
	if err != nil {
		return nil, nil, err
	}
	return out, session, nil
}
