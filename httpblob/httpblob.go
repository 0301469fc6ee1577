// Package httpblob fetches VPK blobs over HTTP.
package httpblob

import (
	"context"
	"fmt"
	"net/url"
	"path"

	"github.com/go-resty/resty/v2"
	"github.com/pg9182/vpk"
)

var _ vpk.Blob = (*Blob)(nil)

// Blob is a vpk.Blob downloaded in full from a URL the first time its bytes
// are needed.
type Blob struct {
	client *resty.Client
	url    string
	name   string
}

// Option configures a Blob.
type Option func(*Blob)

// WithClient sets the client used to fetch the blob.
func WithClient(c *resty.Client) Option {
	return func(b *Blob) {
		b.client = c
	}
}

// WithName overrides the blob name, which otherwise is the last element of the
// URL path.
func WithName(name string) Option {
	return func(b *Blob) {
		b.name = name
	}
}

// New creates a Blob for rawURL.
func New(rawURL string, opts ...Option) (*Blob, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse url %q: unsupported scheme %q", rawURL, u.Scheme)
	}
	b := &Blob{
		url:  u.String(),
		name: path.Base(u.Path),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.client == nil {
		b.client = resty.New()
	}
	return b, nil
}

// Name implements vpk.Blob.
func (b *Blob) Name() string {
	return b.name
}

// Bytes implements vpk.Blob.
func (b *Blob) Bytes(ctx context.Context) ([]byte, error) {
	resp, err := b.client.R().SetContext(ctx).Get(b.url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", b.url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("get %s: response status %s", b.url, resp.Status())
	}
	return resp.Body(), nil
}
