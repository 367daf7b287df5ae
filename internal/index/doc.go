// Package index manages the per-field indexes of a sealed segment.
//
// # Lifecycle
//
// Each field moves forward through NoIndex, Loading, InterimReady and Ready:
//
//	NoIndex ──► Loading ──► Ready
//	   │                      ▲
//	   └──► InterimReady ─────┘ (interim discarded)
//
// An interim IVF_FLAT index built from raw vectors stays usable while the
// persisted index loads. A failed load restores the previous state.
//
// # Artifacts
//
// Persisted indexes travel as binlog frames of kind KindIndex. The payload
// carries JSON metadata (kind, data type, dimension, metric) followed by the
// kind-specific body. Metadata is checked against the schema before the body
// is decoded.
package index
