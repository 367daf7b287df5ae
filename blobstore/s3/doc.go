// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("files/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
// # Features
//
//   - CRC32C-checksummed single-part writes for small binlogs
//   - Multipart uploads for large index files
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
