package openapi

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ErrSource marks documents that cannot be read from their source.
var ErrSource = errors.New("openapi: cannot read source")

// SourceKind enumerates where a document comes from.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

// Source identifies where an OpenAPI document originated.
type Source interface {
	Kind() SourceKind
	Location() string
}

type fileSource struct {
	path string
}

func (s fileSource) Location() string { return s.path }
func (s fileSource) Kind() SourceKind { return SourceKindFile }

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

type fsSource struct {
	fsys fs.FS
	name string
}

func (s fsSource) Location() string { return s.name }
func (s fsSource) Kind() SourceKind { return SourceKindFS }

// SourceFromFS returns a Source identifying a resource inside fsys.
func SourceFromFS(fsys fs.FS, name string) Source {
	return fsSource{fsys: fsys, name: name}
}

type urlSource struct {
	raw string
}

func (s urlSource) Location() string { return s.raw }
func (s urlSource) Kind() SourceKind { return SourceKindURL }

// SourceFromURL validates raw and returns a Source for it.
func SourceFromURL(raw string) (Source, error) {
	if _, err := url.ParseRequestURI(raw); err != nil {
		return nil, goerr.Wrap(ErrSource, "invalid url", goerr.V("url", raw), goerr.V("cause", err.Error()))
	}
	return urlSource{raw: raw}, nil
}

// SourceFor picks a URL source for http(s) locations and a file source
// otherwise.
func SourceFor(location string) (Source, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return SourceFromURL(location)
	}
	return SourceFromFile(location), nil
}

// Read fetches the raw payload of src. URL sources use client, or
// http.DefaultClient when nil.
func Read(ctx context.Context, src Source, client *http.Client) ([]byte, error) {
	if src == nil {
		return nil, goerr.Wrap(ErrSource, "source is nil")
	}
	switch s := src.(type) {
	case fileSource:
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read file", goerr.V("path", s.path))
		}
		return data, nil
	case fsSource:
		if s.fsys == nil {
			return nil, goerr.Wrap(ErrSource, "filesystem is nil", goerr.V("name", s.name))
		}
		data, err := fs.ReadFile(s.fsys, s.name)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read file", goerr.V("name", s.name))
		}
		return data, nil
	case urlSource:
		return readURL(ctx, s.raw, client)
	default:
		return nil, goerr.Wrap(ErrSource, "unsupported source", goerr.V("kind", string(src.Kind())))
	}
}

func readURL(ctx context.Context, raw string, client *http.Client) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build request", goerr.V("url", raw))
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch document", goerr.V("url", raw))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, goerr.Wrap(ErrSource, "unexpected status", goerr.V("url", raw), goerr.V("status", resp.StatusCode))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response", goerr.V("url", raw))
	}
	return data, nil
}
