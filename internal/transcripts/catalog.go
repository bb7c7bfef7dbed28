// Package transcripts finds finished transcriptions in the bucket and
// serves them back.
package transcripts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"transcribeAnything/internal/models"
	"transcribeAnything/internal/objectstore"
)

const (
	resultSuffix       = ".txt"
	defaultContentType = "application/octet-stream"
)

// LinkFunc turns an object name into a download URL.
type LinkFunc func(objectName string) string

// Catalog reads results straight from the bucket; nothing is cached.
type Catalog struct {
	logger *slog.Logger
	store  objectstore.Store
}

func NewCatalog(logger *slog.Logger, store objectstore.Store) *Catalog {
	return &Catalog{logger: logger, store: store}
}

// List returns one entry per top-level folder holding a text result,
// newest-looking names first.
func (c *Catalog) List(ctx context.Context, link LinkFunc) ([]models.Transcription, error) {
	prefixes, err := c.store.Prefixes(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.Transcription, 0, len(prefixes))
	for _, prefix := range prefixes {
		objects, err := c.store.List(ctx, prefix)
		if err != nil {
			return nil, err
		}
		result, ok := firstResult(objects)
		if !ok {
			continue
		}
		items = append(items, models.Transcription{
			Name:        strings.TrimSuffix(prefix, "/"),
			DownloadURL: link(result.Name),
		})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name > items[j].Name })
	return items, nil
}

func firstResult(objects []objectstore.ObjectInfo) (objectstore.ObjectInfo, bool) {
	for _, o := range objects {
		if strings.HasSuffix(o.Name, resultSuffix) {
			return o, true
		}
	}
	return objectstore.ObjectInfo{}, false
}

// File is a fully buffered object ready to send.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Open loads an object. It returns objectstore.ErrNotExist when the
// path is absent.
func (c *Catalog) Open(ctx context.Context, name string) (*File, error) {
	if name == "" {
		return nil, objectstore.ErrNotExist
	}
	if _, err := c.store.Stat(ctx, name); err != nil {
		return nil, err
	}

	data, info, err := c.store.Read(ctx, name)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	contentType := info.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	c.logger.Info("serving object", "path", name, "bytes", len(data))
	return &File{Name: name, ContentType: contentType, Data: data}, nil
}
