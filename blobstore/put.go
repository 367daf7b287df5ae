package blobstore

import (
	"context"
	"fmt"
	"path"
	"sort"

	"golang.org/x/sync/errgroup"
)

// PutIndexData uploads files under prefix with at most parallel concurrent
// writes. Every upload runs to completion even after one fails; the first
// error is returned. The result maps each written name to its size.
func PutIndexData(ctx context.Context, s Store, prefix string, files map[string][]byte, parallel int) (map[string]int64, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var g errgroup.Group
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for _, name := range names {
		data := files[name]
		g.Go(func() error {
			if err := s.Write(ctx, path.Join(prefix, name), data); err != nil {
				return fmt.Errorf("put %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sizes := make(map[string]int64, len(names))
	for _, name := range names {
		sizes[path.Join(prefix, name)] = int64(len(files[name]))
	}
	return sizes, nil
}
