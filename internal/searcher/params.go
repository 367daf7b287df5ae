package searcher

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/model"
)

// Params describes one k-nearest-neighbor probe over an index.
type Params struct {
	K int
	// NProbe is the number of IVF lists to visit. 0 uses the index default.
	NProbe int
	// Radius keeps only candidates within the radius when non-nil.
	Radius *float32
	// Admit holds the offsets a result may come from. Nil admits every row.
	Admit *roaring.Bitmap
}

// Admits reports whether offset may appear in results.
func (p *Params) Admits(offset int64) bool {
	return p.Admit == nil || p.Admit.Contains(uint32(offset))
}

// Collector feeds scored offsets into a TopK, honoring admission and radius.
type Collector struct {
	p    *Params
	m    distance.Metric
	heap *TopK
}

// NewCollector creates a Collector for p under metric m.
func NewCollector(p *Params, m distance.Metric) *Collector {
	return &Collector{p: p, m: m, heap: NewTopK(p.K, m)}
}

// Offer scores offset unless it is filtered out.
func (c *Collector) Offer(offset int64, score float32) {
	if !c.p.Admits(offset) {
		return
	}
	if c.p.Radius != nil && !WithinRadius(c.m, score, *c.p.Radius) {
		return
	}
	c.heap.Push(offset, score)
}

// Results returns the collected candidates best first.
func (c *Collector) Results() []model.Candidate { return c.heap.Results() }
