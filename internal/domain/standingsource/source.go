package standingsource

import (
	"context"
	"fmt"
	"path"
	"strings"

	crerr "github.com/cockroachdb/errors"
)

// ErrMalformedListing marks a directory response that is not a file array.
var ErrMalformedListing = crerr.New("malformed directory listing")

// File is one entry of a source directory listing.
type File struct {
	Name        string
	Path        string
	DownloadURL string
	SHA         string
	Size        int64
}

// Stem is the file name without its extension.
func (f File) Stem() string {
	return strings.TrimSuffix(f.Name, path.Ext(f.Name))
}

func (f File) IsJSON() bool {
	return strings.EqualFold(path.Ext(f.Name), ".json")
}

// Fetcher reads standings documents from the remote content store.
type Fetcher interface {
	ListDirectory(ctx context.Context, dir string) ([]File, error)
	FetchFile(ctx context.Context, downloadURL string) ([]byte, error)
}

// FetchError is a transport, status or decoding failure talking to the source.
type FetchError struct {
	Op         string
	Target     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Target != "" {
		b.WriteString(" ")
		b.WriteString(e.Target)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Config identifies the repository the standings are read from.
type Config struct {
	Owner  string
	Repo   string
	Branch string
	Token  string
}

func (c Config) HasToken() bool {
	return strings.TrimSpace(c.Token) != ""
}
