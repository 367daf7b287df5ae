// Package distance provides vector distance calculations for every vector
// type a sealed segment stores.
//
// # Supported Metrics
//
//   - MetricL2: squared Euclidean distance (smaller is closer)
//   - MetricIP: inner product (larger is closer)
//   - MetricCosine: cosine similarity (larger is closer)
//   - MetricHamming: differing bits of binary vectors (smaller is closer)
//   - MetricJaccard: Jaccard distance of binary vectors (smaller is closer)
//
// Sparse vectors only support MetricIP.
//
// # Usage
//
//	d := distance.SquaredL2(a, b)
//	if metric.Closer(d, best) { ... }
package distance
