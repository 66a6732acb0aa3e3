// Package storage saves recipe images to the local filesystem or to an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// RecipeImageDir is the key prefix for recipe images.
const RecipeImageDir = "uploads/recipe"

var ErrInvalidKey = errors.New("invalid storage key")

// ImageStore persists image bytes under a slash-separated key.
type ImageStore interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// maxExtLen bounds the extension kept from an uploaded filename.
const maxExtLen = 10

// RecipeImagePath builds the storage key for a recipe image: the given
// unique name followed by the extension of the uploaded filename. Extensions
// that are not 1-10 ASCII letters or digits are dropped.
func RecipeImagePath(name, filename string) string {
	return path.Join(RecipeImageDir, name+cleanExt(path.Ext(filename)))
}

func cleanExt(ext string) string {
	body := strings.TrimPrefix(ext, ".")
	if body == "" || len(body) > maxExtLen {
		return ""
	}
	for _, c := range body {
		if !isAlnum(c) {
			return ""
		}
	}
	return ext
}

func isAlnum(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// validKey rejects empty, absolute and parent-escaping keys.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	if path.Clean(key) != key {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

// joinURL appends key to base with exactly one slash between them.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
