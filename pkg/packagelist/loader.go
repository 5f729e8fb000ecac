// Package packagelist fetches and parses the line-oriented package list that
// drives package installation.
//
// Each non-comment line has three comma-separated fields:
//
//	tag,name,description
//
// Only entries with an empty tag are active. The description keeps any further
// commas and may be wrapped in double quotes.
package packagelist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// CommentMarker starts a full-line comment.
const CommentMarker = '#'

// maxListSize bounds the downloaded document.
const maxListSize = 4 * 1024 * 1024

var (
	// ErrDownload indicates the list could not be fetched.
	ErrDownload = errors.New("download")

	// ErrEmpty indicates the list contains no active entries.
	ErrEmpty = errors.New("empty")
)

// Entry is a parsed row of the package list.
type Entry struct {
	Tag         string `json:"tag"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Active reports whether the entry should be installed.
func (e Entry) Active() bool {
	return e.Tag == ""
}

// List is a fetched package list. Entries are parsed lazily on iteration.
type List struct {
	source string
	body   []byte
}

// Source returns where the list was loaded from.
func (l *List) Source() string {
	return l.source
}

// Bytes returns the raw document.
func (l *List) Bytes() []byte {
	return l.body
}

// All yields every well-formed entry, active or not, in document order.
func (l *List) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for line := range strings.Lines(string(l.body)) {
			e, ok := ParseLine(line)
			if !ok {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Active yields the entries with an empty tag.
func (l *List) Active() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for e := range l.All() {
			if !e.Active() {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// CountActive returns the number of active entries.
func (l *List) CountActive() int {
	n := 0
	for range l.Active() {
		n++
	}
	return n
}

// Rejected returns the non-comment, non-blank lines that could not be parsed.
func (l *List) Rejected() []string {
	var out []string
	for line := range strings.Lines(string(l.body)) {
		if isIgnorable(line) {
			continue
		}
		if _, ok := ParseLine(line); !ok {
			out = append(out, strings.TrimSpace(line))
		}
	}
	return out
}

// Parse builds a List from an in-memory document.
func Parse(source string, body []byte) (*List, error) {
	l := &List{source: source, body: body}
	if l.CountActive() == 0 {
		return nil, fmt.Errorf("package list %s has no active entries: %w", source, ErrEmpty)
	}
	return l, nil
}

// isIgnorable reports blank lines and full-line comments.
func isIgnorable(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || trimmed[0] == CommentMarker
}

// ParseLine parses a single row. It returns false for blank lines, comments
// and malformed rows (no comma or an empty package name).
func ParseLine(line string) (Entry, bool) {
	if isIgnorable(line) {
		return Entry{}, false
	}

	fields := strings.SplitN(strings.TrimRight(line, "\r\n"), ",", 3)
	if len(fields) < 2 {
		return Entry{}, false
	}

	e := Entry{
		Tag:  strings.TrimSpace(fields[0]),
		Name: strings.TrimSpace(fields[1]),
	}
	if e.Name == "" {
		return Entry{}, false
	}
	if len(fields) == 3 {
		e.Description = unquote(strings.TrimSpace(fields[2]))
	}
	return e, true
}

// unquote strips one pair of surrounding double quotes. Interior quotes are kept.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// Loader fetches package lists.
type Loader struct {
	client *http.Client
}

// NewLoader creates a loader. A nil client uses a default client.
func NewLoader(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{}
	}
	return &Loader{client: client}
}

// Load fetches and validates the list at source, which may be an http(s)
// URL, a file:// URL or a filesystem path. Errors wrap ErrDownload or ErrEmpty.
func (l *Loader) Load(ctx context.Context, source string) (*List, error) {
	body, err := l.fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch package list %s: %w: %w", source, ErrDownload, err)
	}
	return Parse(source, body)
}

func (l *Loader) fetch(ctx context.Context, source string) ([]byte, error) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case "http", "https":
		return l.fetchHTTP(ctx, source)
	case "file":
		return readFile(u.Path)
	case "":
		return readFile(source)
	default:
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
}

func (l *Loader) fetchHTTP(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s after %s", resp.Status, time.Since(start).Round(time.Millisecond))
	}

	return readLimited(resp.Body)
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f)
}

// readLimited reads r whole, refusing documents over maxListSize instead
// of truncating them.
func readLimited(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, maxListSize+1)); err != nil {
		return nil, err
	}
	if buf.Len() > maxListSize {
		return nil, fmt.Errorf("package list exceeds %d bytes", maxListSize)
	}
	return buf.Bytes(), nil
}
