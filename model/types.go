package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hupe1980/segcore/distance"
	"github.com/hupe1980/segcore/schema"
)

// SegmentID is the unique identifier of a sealed segment.
type SegmentID int64

// Timestamp is a logical MVCC timestamp.
type Timestamp uint64

// MaxTimestamp sees every insert and every deletion.
const MaxTimestamp Timestamp = math.MaxUint64

// PKKind tags the representation of a primary key.
type PKKind uint8

const (
	PKInt64 PKKind = iota
	PKVarChar
)

// PK is a primary key value. It is comparable and usable as a map key.
type PK struct {
	kind PKKind
	num  int64
	str  string
}

// Int64PK returns an INT64 primary key.
func Int64PK(v int64) PK {
	return PK{kind: PKInt64, num: v}
}

// VarCharPK returns a VARCHAR primary key.
func VarCharPK(s string) PK {
	return PK{kind: PKVarChar, str: s}
}

// Kind returns the primary key representation.
func (p PK) Kind() PKKind { return p.kind }

// Int64 returns the numeric value of an INT64 key.
func (p PK) Int64() int64 { return p.num }

// VarChar returns the string value of a VARCHAR key.
func (p PK) VarChar() string { return p.str }

// Compare orders keys of the same kind. INT64 keys sort before VARCHAR keys.
func (p PK) Compare(o PK) int {
	if p.kind != o.kind {
		if p.kind < o.kind {
			return -1
		}
		return 1
	}
	if p.kind == PKVarChar {
		return strings.Compare(p.str, o.str)
	}
	switch {
	case p.num < o.num:
		return -1
	case p.num > o.num:
		return 1
	default:
		return 0
	}
}

// String returns a printable representation of the key.
func (p PK) String() string {
	if p.kind == PKVarChar {
		return strconv.Quote(p.str)
	}
	return strconv.FormatInt(p.num, 10)
}

// Candidate represents a single ranked hit within one segment.
type Candidate struct {
	// Offset is the segment-local row offset.
	Offset int64
	// Distance is the metric-dependent score.
	Distance float32
}

// String returns a string representation of the Candidate.
func (c Candidate) String() string {
	return fmt.Sprintf("Cand(%d:%g)", c.Offset, c.Distance)
}

// SearchRequest controls the execution of a vector search on a segment.
type SearchRequest struct {
	// FieldID is the vector field to search.
	FieldID schema.FieldID
	// TopK is the number of neighbors to return per query.
	TopK int
	// Metric is the distance metric. It must match the index metric when an index answers.
	Metric distance.Metric
	// NProbe is the number of IVF lists to probe. 0 uses the index default.
	NProbe int
	// Radius enables range search when non-nil: only hits within the radius are kept.
	Radius *float32
}

// SearchResult holds ranked candidates for each query vector.
type SearchResult struct {
	SegmentID SegmentID
	// Queries[i] holds at most TopK candidates for query i, best first.
	Queries [][]Candidate
}

// Total returns the number of candidates across all queries.
func (r *SearchResult) Total() int {
	n := 0
	for _, q := range r.Queries {
		n += len(q)
	}
	return n
}
