// Package fetcher opens inventory feeds from local paths, HTTP(S) and FTP and
// parses tabular payloads (CSV, XLSX) into header-keyed records.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher opens a feed by URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) (io.ReadCloser, error)
}

// Router dispatches on the URI scheme. Bare paths and file:// URIs are read
// from disk.
type Router struct {
	HTTP Fetcher
	FTP  Fetcher
}

// Options configures NewRouter.
type Options struct {
	HTTP HTTPOptions
	FTP  FTPOptions
}

// NewRouter builds a Router with HTTP and FTP fetchers.
func NewRouter(opts Options) *Router {
	return &Router{
		HTTP: NewHTTPFetcher(opts.HTTP),
		FTP:  NewFTPFetcher(opts.FTP),
	}
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, uri string) (io.ReadCloser, error) {
	switch Scheme(uri) {
	case "http", "https":
		if r.HTTP == nil {
			return nil, eris.Errorf("fetcher: no http fetcher for %s", uri)
		}
		return r.HTTP.Fetch(ctx, uri)
	case "ftp":
		if r.FTP == nil {
			return nil, eris.Errorf("fetcher: no ftp fetcher for %s", uri)
		}
		return r.FTP.Fetch(ctx, uri)
	case "file", "":
		f, err := os.Open(LocalPath(uri))
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", uri)
		}
		return f, nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme in %s", uri)
	}
}

// Scheme returns the lower-cased URI scheme, or "" for a bare path.
func Scheme(uri string) string {
	i := strings.Index(uri, "://")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(uri[:i])
}

// LocalPath returns the filesystem path of a bare path or file:// URI.
func LocalPath(uri string) string {
	if Scheme(uri) != "file" {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}
	return u.Path
}
