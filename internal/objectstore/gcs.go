package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS is a Store backed by a single Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS dials Cloud Storage with application default credentials
// unless opts say otherwise.
func NewGCS(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCS, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) Bucket() string {
	return g.bucket
}

// Upload streams r into name. A failed copy cancels the writer's context,
// which aborts the upload instead of committing a truncated object.
func (g *GCS) Upload(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", name, err)
	}
	return URI(g.bucket, name), nil
}

func (g *GCS) Prefixes(ctx context.Context) ([]string, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Delimiter: "/"})
	var prefixes []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list prefixes: %w", err)
		}
		if attrs.Prefix != "" {
			prefixes = append(prefixes, attrs.Prefix)
		}
	}
	return prefixes, nil
}

func (g *GCS) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	var objects []ObjectInfo
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", prefix, err)
		}
		objects = append(objects, infoFromAttrs(attrs))
	}
	return objects, nil
}

func (g *GCS) Stat(ctx context.Context, name string) (ObjectInfo, error) {
	attrs, err := g.client.Bucket(g.bucket).Object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ObjectInfo{}, ErrNotExist
	}
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat %s: %w", name, err)
	}
	return infoFromAttrs(attrs), nil
}

func (g *GCS) Read(ctx context.Context, name string) ([]byte, ObjectInfo, error) {
	r, err := g.client.Bucket(g.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ObjectInfo{}, ErrNotExist
	}
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("read %s: %w", name, err)
	}
	return data, ObjectInfo{
		Name:        name,
		ContentType: r.Attrs.ContentType,
		Size:        int64(len(data)),
		Updated:     r.Attrs.LastModified,
	}, nil
}

func infoFromAttrs(attrs *storage.ObjectAttrs) ObjectInfo {
	return ObjectInfo{
		Name:        attrs.Name,
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		Updated:     attrs.Updated,
	}
}
