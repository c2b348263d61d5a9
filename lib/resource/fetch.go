// Copyright 2026 The Slipway Authors
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Info describes a resource without fetching its content.
type Info struct {
	// Size is the total payload size in bytes, or -1 when the
	// transport cannot determine it.
	Size int64

	// ETag is the HTTP validator for the resource, empty for local
	// sources or when the server sends none.
	ETag string
}

// Fetcher retrieves bytes for a single resource. Implementations exist
// for local files and HTTP URLs; buffers hold exactly one fetcher for
// the lifetime of their request.
type Fetcher interface {
	// Stat returns metadata for the resource without transferring its
	// content.
	Stat(ctx context.Context) (Info, error)

	// Open returns a reader over [offset, offset+length) of the
	// resource, along with the total resource size when the transport
	// reports it (-1 otherwise). length < 0 reads to the end. The
	// caller owns the returned reader and must close it.
	Open(ctx context.Context, offset, length int64) (io.ReadCloser, int64, error)
}

// Cache stores whole-resource downloads keyed by URL so repeated boots
// skip the transfer. Implemented by lib/cache; range fetches bypass it.
type Cache interface {
	// Get returns the cached payload and stored validator for url.
	// ok is false on a miss.
	Get(ctx context.Context, url string) (data []byte, etag string, ok bool, err error)

	// Put stores the payload and its validator for url.
	Put(ctx context.Context, url string, data []byte, etag string) error
}

// --- Local files ---

// FileFetcher reads a resource from the local filesystem.
type FileFetcher struct {
	Path string
}

var _ Fetcher = (*FileFetcher)(nil)

// Stat returns the file's size.
func (f *FileFetcher) Stat(ctx context.Context) (Info, error) {
	stat, err := os.Stat(f.Path)
	if err != nil {
		return Info{}, fmt.Errorf("statting %s: %w", f.Path, err)
	}
	return Info{Size: stat.Size()}, nil
}

// Open returns a section of the file. Each call opens a fresh handle
// so concurrent reads do not share a file offset.
func (f *FileFetcher) Open(ctx context.Context, offset, length int64) (io.ReadCloser, int64, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", f.Path, err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("statting %s: %w", f.Path, err)
	}
	total := stat.Size()
	if offset > total {
		file.Close()
		return nil, 0, fmt.Errorf("reading %s: offset %d beyond size %d", f.Path, offset, total)
	}
	if length < 0 || offset+length > total {
		length = total - offset
	}
	return &sectionReadCloser{
		SectionReader: io.NewSectionReader(file, offset, length),
		file:          file,
	}, total, nil
}

// sectionReadCloser bundles a SectionReader with the file handle it
// reads from, so Close releases the handle.
type sectionReadCloser struct {
	*io.SectionReader
	file *os.File
}

func (s *sectionReadCloser) Close() error { return s.file.Close() }

// --- HTTP ---

// HTTPFetcher reads a resource over HTTP(S). Range reads use the Range
// header; servers that ignore it and answer 200 are handled by
// discarding the unwanted prefix. Whole-resource fetches consult the
// optional Cache with ETag revalidation.
type HTTPFetcher struct {
	URL string

	// Client overrides the HTTP client. Nil means http.DefaultClient.
	Client *http.Client

	// Cache, when set, serves whole-resource fetches and is refreshed
	// after successful downloads. Cache failures are logged, never
	// fatal: the fetch proceeds uncached.
	Cache Cache

	// Logger receives cache-bypass warnings. Nil means slog.Default().
	Logger *slog.Logger
}

var _ Fetcher = (*HTTPFetcher)(nil)

func (f *HTTPFetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *HTTPFetcher) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// Stat issues a HEAD request. Servers that reject HEAD are retried
// with a one-byte range GET, recovering the total from Content-Range.
func (f *HTTPFetcher) Stat(ctx context.Context) (Info, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodHead, f.URL, nil)
	if err != nil {
		return Info{}, fmt.Errorf("building HEAD request for %s: %w", f.URL, err)
	}
	response, err := f.client().Do(request)
	if err != nil {
		return Info{}, fmt.Errorf("statting %s: %w", f.URL, err)
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
		return Info{Size: response.ContentLength, ETag: response.Header.Get("ETag")}, nil
	case http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return f.statByRange(ctx)
	default:
		return Info{}, fmt.Errorf("statting %s: unexpected status %s", f.URL, response.Status)
	}
}

// statByRange recovers resource metadata via a minimal range GET, for
// servers that do not implement HEAD.
func (f *HTTPFetcher) statByRange(ctx context.Context) (Info, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return Info{}, fmt.Errorf("building GET request for %s: %w", f.URL, err)
	}
	request.Header.Set("Range", "bytes=0-0")
	response, err := f.client().Do(request)
	if err != nil {
		return Info{}, fmt.Errorf("statting %s: %w", f.URL, err)
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusPartialContent:
		total, err := parseContentRangeTotal(response.Header.Get("Content-Range"))
		if err != nil {
			return Info{}, fmt.Errorf("statting %s: %w", f.URL, err)
		}
		return Info{Size: total, ETag: response.Header.Get("ETag")}, nil
	case http.StatusOK:
		return Info{Size: response.ContentLength, ETag: response.Header.Get("ETag")}, nil
	default:
		return Info{}, fmt.Errorf("statting %s: unexpected status %s", f.URL, response.Status)
	}
}

// Open fetches [offset, offset+length) of the resource. A whole-fetch
// (offset 0, negative length) goes through the cache when one is
// configured; everything else hits the network directly.
func (f *HTTPFetcher) Open(ctx context.Context, offset, length int64) (io.ReadCloser, int64, error) {
	whole := offset == 0 && length < 0
	if whole && f.Cache != nil {
		return f.openCached(ctx)
	}
	return f.openDirect(ctx, offset, length)
}

func (f *HTTPFetcher) openDirect(ctx context.Context, offset, length int64) (io.ReadCloser, int64, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building GET request for %s: %w", f.URL, err)
	}
	ranged := offset > 0 || length >= 0
	if ranged {
		if length >= 0 {
			request.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))
		} else {
			request.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
		}
	}

	response, err := f.client().Do(request)
	if err != nil {
		return nil, 0, fmt.Errorf("fetching %s: %w", f.URL, err)
	}

	switch response.StatusCode {
	case http.StatusPartialContent:
		total, err := parseContentRangeTotal(response.Header.Get("Content-Range"))
		if err != nil {
			response.Body.Close()
			return nil, 0, fmt.Errorf("fetching %s: %w", f.URL, err)
		}
		return response.Body, total, nil

	case http.StatusOK:
		// The server ignored the Range header and is sending the whole
		// resource. Discard the prefix and bound the remainder so the
		// caller still sees exactly the requested window.
		total := response.ContentLength
		if !ranged {
			return response.Body, total, nil
		}
		if _, err := io.CopyN(io.Discard, response.Body, offset); err != nil {
			response.Body.Close()
			return nil, 0, fmt.Errorf("fetching %s: discarding %d-byte prefix: %w", f.URL, offset, err)
		}
		if length < 0 {
			return response.Body, total, nil
		}
		return &limitReadCloser{
			Reader: io.LimitReader(response.Body, length),
			closer: response.Body,
		}, total, nil

	default:
		response.Body.Close()
		return nil, 0, fmt.Errorf("fetching %s: unexpected status %s", f.URL, response.Status)
	}
}

// openCached serves a whole-resource fetch through the download cache:
// a hit is revalidated with If-None-Match, and a fresh download is
// written back once fully read.
func (f *HTTPFetcher) openCached(ctx context.Context) (io.ReadCloser, int64, error) {
	cached, etag, hit, err := f.Cache.Get(ctx, f.URL)
	if err != nil {
		f.logger().Warn("download cache read failed, fetching uncached",
			"url", f.URL, "error", err)
		hit = false
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("building GET request for %s: %w", f.URL, err)
	}
	if hit && etag != "" {
		request.Header.Set("If-None-Match", etag)
	}

	response, err := f.client().Do(request)
	if err != nil {
		// Offline with a warm cache is still a successful load.
		if hit {
			f.logger().Warn("fetch failed, serving cached copy", "url", f.URL, "error", err)
			return io.NopCloser(bytes.NewReader(cached)), int64(len(cached)), nil
		}
		return nil, 0, fmt.Errorf("fetching %s: %w", f.URL, err)
	}

	switch response.StatusCode {
	case http.StatusNotModified:
		response.Body.Close()
		if !hit {
			return nil, 0, fmt.Errorf("fetching %s: 304 without a cached copy", f.URL)
		}
		return io.NopCloser(bytes.NewReader(cached)), int64(len(cached)), nil

	case http.StatusOK:
		total := response.ContentLength
		writeBack := &cacheWriteReader{
			body: response.Body,
			complete: func(data []byte) {
				putCtx := context.WithoutCancel(ctx)
				if err := f.Cache.Put(putCtx, f.URL, data, response.Header.Get("ETag")); err != nil {
					f.logger().Warn("download cache write failed", "url", f.URL, "error", err)
				}
			},
		}
		if total > 0 {
			writeBack.buf.Grow(int(total))
		}
		return writeBack, total, nil

	default:
		response.Body.Close()
		return nil, 0, fmt.Errorf("fetching %s: unexpected status %s", f.URL, response.Status)
	}
}

// limitReadCloser bounds a response body while keeping it closable.
type limitReadCloser struct {
	io.Reader
	closer io.Closer
}

func (l *limitReadCloser) Close() error { return l.closer.Close() }

// cacheWriteReader accumulates everything read from body and hands the
// complete payload to the write-back callback once the stream ends.
// Partial reads are never cached.
type cacheWriteReader struct {
	body     io.ReadCloser
	buf      bytes.Buffer
	complete func(data []byte)
	done     bool
}

func (c *cacheWriteReader) Read(p []byte) (int, error) {
	n, err := c.body.Read(p)
	if n > 0 {
		c.buf.Write(p[:n])
	}
	if err == io.EOF && !c.done {
		c.done = true
		c.complete(c.buf.Bytes())
	}
	return n, err
}

func (c *cacheWriteReader) Close() error { return c.body.Close() }

// parseContentRangeTotal extracts the total size from a Content-Range
// header ("bytes 0-99/12345"). A "*" total means unknown and maps to
// -1.
func parseContentRangeTotal(header string) (int64, error) {
	if header == "" {
		return -1, fmt.Errorf("missing Content-Range header in partial response")
	}
	_, totalPart, found := strings.Cut(header, "/")
	if !found {
		return -1, fmt.Errorf("malformed Content-Range header %q", header)
	}
	if totalPart == "*" {
		return -1, nil
	}
	total, err := strconv.ParseInt(totalPart, 10, 64)
	if err != nil {
		return -1, fmt.Errorf("malformed Content-Range header %q: %w", header, err)
	}
	return total, nil
}
