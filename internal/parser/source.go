package parser

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"

	"github.com/fyrsmithlabs/promorag/internal/ignore"
)

// Document is a source file selected for ingestion.
type Document struct {
	Name string
	URL  string

	object storage.Object
}

// Source lists and downloads supported documents from a directory or any
// location afs can read (file://, mem://, s3://, gs://).
type Source struct {
	fs       afs.Service
	registry *Registry
}

// NewSource returns a source accepting the extensions of registry.
func NewSource(registry *Registry) *Source {
	return &Source{fs: afs.New(), registry: registry}
}

// List returns the supported files directly under location, sorted by name.
// Files matched by ignore.DefaultPatterns or by an ignore.FileName in
// location are left out.
func (s *Source) List(ctx context.Context, location string) ([]Document, error) {
	norm, err := normalizeLocation(location)
	if err != nil {
		return nil, err
	}
	objects, err := s.fs.List(ctx, norm)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", location, err)
	}
	excluded, err := s.matcher(ctx, objects)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", location, err)
	}

	var docs []Document
	for _, obj := range objects {
		if obj.IsDir() || excluded.Match(obj.Name()) || !s.registry.Supports(obj.Name()) {
			continue
		}
		docs = append(docs, Document{Name: obj.Name(), URL: obj.URL(), object: obj})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

func (s *Source) matcher(ctx context.Context, objects []storage.Object) (*ignore.Matcher, error) {
	for _, obj := range objects {
		if obj.IsDir() || obj.Name() != ignore.FileName {
			continue
		}
		data, err := s.fs.Download(ctx, obj)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", ignore.FileName, err)
		}
		patterns, err := ignore.Parse(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", ignore.FileName, err)
		}
		return ignore.New(patterns...)
	}
	return ignore.New()
}

// Download returns the content of doc.
func (s *Source) Download(ctx context.Context, doc Document) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if doc.object != nil {
		data, err = s.fs.Download(ctx, doc.object)
	} else {
		data, err = s.fs.DownloadWithURL(ctx, doc.URL)
	}
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", doc.Name, err)
	}
	return data, nil
}

// normalizeLocation turns bare paths into absolute file URLs.
func normalizeLocation(location string) (string, error) {
	if url.Scheme(location, "") != "" {
		return location, nil
	}
	if url.IsRelative(location) {
		abs, err := filepath.Abs(location)
		if err != nil {
			return "", fmt.Errorf("resolving %s: %w", location, err)
		}
		location = abs
	}
	return url.ToFileURL(location), nil
}
