// Package storage archives generated artefacts to Cloud Storage under purpose-specific layouts.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// Object describes an uploaded object.
type Object struct {
	Bucket string
	Name   string
	Size   int64
}

// URI returns the gs:// address of the object.
func (o Object) URI() string {
	return "gs://" + o.Bucket + "/" + o.Name
}

// Upload is one object to write.
type Upload struct {
	Purpose     Purpose
	Params      PathParams
	ContentType string
	Data        []byte
	Metadata    map[string]string
}

// writeFunc writes data to bucket/object and returns the stored size.
type writeFunc func(ctx context.Context, bucket, object string, upload Upload) (int64, error)

// Exporter uploads artefacts to a single bucket.
type Exporter struct {
	bucket string
	write  writeFunc
}

// NewExporter builds an Exporter writing through client.
func NewExporter(client *gcs.Client, bucket string) (*Exporter, error) {
	if client == nil {
		return nil, errors.New("storage exporter: client is required")
	}
	return newExporter(bucket, func(ctx context.Context, bucket, object string, upload Upload) (int64, error) {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = upload.ContentType
		w.CacheControl = "private, max-age=0"
		w.Metadata = upload.Metadata
		n, err := w.Write(upload.Data)
		if err != nil {
			_ = w.Close()
			return 0, err
		}
		if err := w.Close(); err != nil {
			return 0, err
		}
		return int64(n), nil
	})
}

func newExporter(bucket string, write writeFunc) (*Exporter, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage exporter: bucket is required")
	}
	return &Exporter{bucket: bucket, write: write}, nil
}

// Bucket returns the destination bucket.
func (e *Exporter) Bucket() string { return e.bucket }

// Put writes upload at the path its purpose dictates.
func (e *Exporter) Put(ctx context.Context, upload Upload) (Object, error) {
	name, err := BuildObjectPath(upload.Purpose, upload.Params)
	if err != nil {
		return Object{}, err
	}
	if len(upload.Data) == 0 {
		return Object{}, errors.New("storage exporter: empty payload")
	}
	size, err := e.write(ctx, e.bucket, name, upload)
	if err != nil {
		return Object{}, fmt.Errorf("storage exporter: write %s: %w", name, err)
	}
	return Object{Bucket: e.bucket, Name: name, Size: size}, nil
}
