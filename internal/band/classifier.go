package band

import (
	"sync"

	"github.com/cwsl/sdrindex/internal/trace"
)

// Options configures the classifier. GridTolerance is the Open Question
// spec.md §9 leaves to the implementer: the stated default is 1e-6 and
// must remain the default even though it is exposed as a knob.
type Options struct {
	GridTolerance float64
}

// DefaultOptions returns the default tolerance.
func DefaultOptions() Options {
	return Options{GridTolerance: 1e-6}
}

// Classifier streams records into bands keyed by frequency-grid
// fingerprint (spec.md §4.1). It is safe for concurrent use: the registry
// of bands is guarded by a single mutex (spec.md §5's "band registry,
// guarded by a single mutex protecting insert/lookup"), while each band's
// own Accept serializes writes to that band only.
type Classifier struct {
	opts Options

	mu    sync.Mutex
	bands map[Key]*Band
	order []Key // first-seen order, for deterministic iteration
	seq   int
}

// NewClassifier creates an empty classifier.
func NewClassifier(opts Options) *Classifier {
	return &Classifier{opts: opts, bands: make(map[Key]*Band)}
}

// Classify dispatches one record to its band, creating the band on first
// sight of its Key. A non-nil error is either a *DriftError (the record
// was rejected but the band continues, spec.md §7's GridDrift policy —
// not fatal) or the reconciler's error when the record's axis could not
// be fitted for interpolation.
func (c *Classifier) Classify(r trace.Record) (*Band, error) {
	key := KeyOf(r)

	c.mu.Lock()
	b, ok := c.bands[key]
	if !ok {
		b = newBand(key)
		c.bands[key] = b
		c.order = append(c.order, key)
	}
	seq := c.seq
	c.seq++
	c.mu.Unlock()

	if err := b.Accept(r, c.opts.GridTolerance, seq); err != nil {
		return b, err
	}
	return b, nil
}

// Bands returns every band seen so far, in first-seen order.
func (c *Classifier) Bands() []*Band {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Band, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.bands[k])
	}
	return out
}
