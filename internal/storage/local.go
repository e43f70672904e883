// Package storage keeps uploaded files on the local filesystem and serves them back.
package storage

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// URLPrefix is the public path uploads are served under.
const URLPrefix = "/uploads/"

// ErrInvalidName is returned for filenames that cannot name a file in the upload directory.
var ErrInvalidName = errors.New("invalid file name")

// Object describes a file written by Save.
type Object struct {
	Name string
	Path string
	URL  string
	Size int64
}

// Local writes uploads under Dir and builds public URLs from BaseURL.
type Local struct {
	Dir     string
	BaseURL string
}

// NewLocal creates dir if needed.
func NewLocal(dir, baseURL string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// CleanName strips any directory part from a client supplied filename.
// The remaining name is kept verbatim.
func CleanName(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", ErrInvalidName
	}
	return name, nil
}

// Save copies src to Dir/name. An existing file with the same name is overwritten.
// A failed copy leaves whatever bytes were written.
func (s *Local) Save(name string, src io.Reader) (Object, error) {
	name, err := CleanName(name)
	if err != nil {
		return Object{}, err
	}

	path := filepath.Join(s.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return Object{}, fmt.Errorf("create %s: %w", path, err)
	}

	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Object{}, fmt.Errorf("write %s: %w", path, err)
	}

	return Object{
		Name: name,
		Path: path,
		URL:  s.URL(name),
		Size: n,
	}, nil
}

// URL returns the public URL for name.
func (s *Local) URL(name string) string {
	return s.BaseURL + URLPrefix + url.PathEscape(name)
}

// Handler serves files from Dir. Mount it with http.StripPrefix(URLPrefix, ...).
// Directory listings are not served.
func (s *Local) Handler() http.Handler {
	fs := http.FileServer(http.Dir(s.Dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
