// Package minio provides a blobstore.Store implementation using the MinIO client.
//
// It works with MinIO and any S3-compatible server (Ceph, SeaweedFS, Garage).
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "segments", "files/")
//	seg, err := segcore.New(id, schema, segcore.WithStore(store))
package minio
