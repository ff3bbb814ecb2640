package asset

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrUnsupportedScheme = errors.New("asset: unsupported resource scheme")
	ErrFetchFailed       = errors.New("asset: could not fetch remote resource")
)

// The http client used for fetching remote resources.
var HTTPClient = &http.Client{Timeout: 30 * time.Second}

// A Resource is a readable scene asset stored either on the local filesystem
// or behind an http/https URL.
type Resource struct {
	io.ReadCloser
	url *url.URL
}

// Get the full path or URL of this resource.
func (r *Resource) Path() string {
	return r.url.String()
}

// Get the file name of this resource without any directories.
func (r *Resource) Name() string {
	if r.IsRemote() {
		return path.Base(r.url.Path)
	}
	return filepath.Base(r.url.Path)
}

// Returns true if the resource is streamed over http/https.
func (r *Resource) IsRemote() bool {
	return r.url.Scheme != ""
}

// Open a resource. If relTo is not nil and location is not an absolute URL,
// location is resolved against the directory that contains relTo. Local
// resources are resolved against local resources and remote resources
// against remote ones.
//
// The caller must close the returned resource.
func NewResource(location string, relTo *Resource) (*Resource, error) {
	target, err := url.Parse(strings.Replace(location, `\`, `/`, -1))
	if err != nil {
		return nil, fmt.Errorf("asset: invalid resource location %q: %w", location, err)
	}

	if target.Scheme == "" && relTo != nil {
		target, err = resolve(target, relTo.url)
		if err != nil {
			return nil, err
		}
	}

	switch target.Scheme {
	case "":
		f, err := os.Open(filepath.Clean(target.Path))
		if err != nil {
			return nil, err
		}
		return &Resource{ReadCloser: f, url: target}, nil
	case "http", "https":
		resp, err := HTTPClient.Get(target.String())
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrFetchFailed, target.String(), err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("%w %q: status %d", ErrFetchFailed, target.String(), resp.StatusCode)
		}
		return &Resource{ReadCloser: resp.Body, url: target}, nil
	}

	return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, target.Scheme)
}

func resolve(rel, base *url.URL) (*url.URL, error) {
	if base.Scheme != "" {
		return base.ResolveReference(rel), nil
	}

	if filepath.IsAbs(rel.Path) {
		return rel, nil
	}

	baseDir, err := filepath.Abs(filepath.Dir(base.Path))
	if err != nil {
		return nil, fmt.Errorf("asset: could not resolve %q relative to %q: %w", rel.Path, base.Path, err)
	}
	return &url.URL{Path: filepath.Join(baseDir, rel.Path)}, nil
}

// Wrap a reader into a resource with the given name. Includes are resolved
// relative to name.
func NewResourceFromStream(name string, source io.Reader) *Resource {
	u, err := url.Parse(name)
	if err != nil {
		u = &url.URL{Path: name}
	}
	return &Resource{
		ReadCloser: io.NopCloser(source),
		url:        u,
	}
}
