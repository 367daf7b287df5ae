// Package kmeans implements Lloyd's k-means over flattened float32 vectors.
//
// It trains the coarse centroids of IVF indexes, including the interim index
// a sealed segment builds from raw vectors. Training is seeded so a fixed
// dataset always yields the same centroids.
package kmeans
