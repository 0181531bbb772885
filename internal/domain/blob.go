package domain

import (
	"context"
	"io"
	"time"
)

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// ChartArchiver moves rendered depth charts to cold storage.
type ChartArchiver interface {
	ArchiveChart(ctx context.Context, token string, at time.Time, chart string) (string, error)
}
