// Package filestore keeps finished deliverables in per-order folders on object storage.
package filestore

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var ErrNotConfigured = errors.New("filestore: no storage backend configured")

// Store uploads a file into a folder and returns a durable link to it.
// Folders are key prefixes, so writing into an existing folder reuses it.
type Store interface {
	Upload(ctx context.Context, folder, filename, contentType string, r io.Reader) (string, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName strips directories and unsafe characters from a file or folder name.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

func objectKey(prefix, folder, filename string) string {
	return prefix + SanitizeName(folder) + "/" + SanitizeName(filename)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

type noopStore struct{}

func (noopStore) Upload(context.Context, string, string, string, io.Reader) (string, error) {
	return "", ErrNotConfigured
}

// Noop is used when no backend is configured.
func Noop() Store {
	return noopStore{}
}
