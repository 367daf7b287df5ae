package blobstore

import (
	"fmt"
	"path"
)

// Object categories.
const (
	CategoryIndex   = "index_files"
	CategoryRawData = "raw_datas"
	CategoryDelta   = "delta_logs"
	tmpDir          = "tmp"
)

// IndexPathPrefix returns the directory of the files of one index build:
// <root>/[tmp/]<category>/<buildID>_<indexVersion>_<segmentID>_<fieldID>/.
func IndexPathPrefix(root string, temp bool, buildID, indexVersion, segmentID, fieldID int64) string {
	dir := fmt.Sprintf("%d_%d_%d_%d", buildID, indexVersion, segmentID, fieldID)
	if temp {
		return path.Join(root, tmpDir, CategoryIndex, dir) + "/"
	}
	return path.Join(root, CategoryIndex, dir) + "/"
}

// RawDataPathPrefix returns the directory of the binlogs of one field:
// <root>/<category>/<segmentID>/<fieldID>/.
func RawDataPathPrefix(root string, segmentID, fieldID int64) string {
	return path.Join(root, CategoryRawData, fmt.Sprint(segmentID), fmt.Sprint(fieldID)) + "/"
}

// DeltaPathPrefix returns the directory of the deletion logs of one segment.
func DeltaPathPrefix(root string, segmentID int64) string {
	return path.Join(root, CategoryDelta, fmt.Sprint(segmentID)) + "/"
}
