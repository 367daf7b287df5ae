package searcher

import (
	"sort"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/model"
)

// Better reports whether a ranks ahead of b under metric m.
func Better(m distance.Metric, a, b model.Candidate) bool {
	if a.Distance != b.Distance {
		return m.Closer(a.Distance, b.Distance)
	}
	return a.Offset < b.Offset
}

// WithinRadius reports whether a score passes a range search radius.
func WithinRadius(m distance.Metric, score, radius float32) bool {
	if m.LargerIsCloser() {
		return score >= radius
	}
	return score <= radius
}

// TopK is a bounded heap keeping the best k candidates.
// The root is the worst kept candidate, i.e. the next to evict.
type TopK struct {
	k      int
	metric distance.Metric
	items  []model.Candidate
}

// NewTopK creates a TopK for k results under metric m.
func NewTopK(k int, m distance.Metric) *TopK {
	return &TopK{k: k, metric: m, items: make([]model.Candidate, 0, k)}
}

// Len returns the number of kept candidates.
func (t *TopK) Len() int { return len(t.items) }

func (t *TopK) worse(i, j int) bool {
	return Better(t.metric, t.items[j], t.items[i])
}

// Push offers a candidate.
func (t *TopK) Push(offset int64, score float32) {
	if t.k <= 0 {
		return
	}
	c := model.Candidate{Offset: offset, Distance: score}
	if len(t.items) < t.k {
		t.items = append(t.items, c)
		t.up(len(t.items) - 1)
		return
	}
	if !Better(t.metric, c, t.items[0]) {
		return
	}
	t.items[0] = c
	t.down(0)
}

// Worst returns the candidate that would be evicted next.
func (t *TopK) Worst() (model.Candidate, bool) {
	if len(t.items) == 0 {
		return model.Candidate{}, false
	}
	return t.items[0], true
}

// Full reports whether k candidates are kept.
func (t *TopK) Full() bool { return len(t.items) >= t.k }

// Results returns the kept candidates best first. The heap is left empty.
func (t *TopK) Results() []model.Candidate {
	out := t.items
	t.items = nil
	sort.Slice(out, func(i, j int) bool { return Better(t.metric, out[i], out[j]) })
	return out
}

func (t *TopK) up(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !t.worse(i, p) {
			return
		}
		t.items[i], t.items[p] = t.items[p], t.items[i]
		i = p
	}
}

func (t *TopK) down(i int) {
	n := len(t.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		w := l
		if r := l + 1; r < n && t.worse(r, l) {
			w = r
		}
		if !t.worse(w, i) {
			return
		}
		t.items[i], t.items[w] = t.items[w], t.items[i]
		i = w
	}
}
