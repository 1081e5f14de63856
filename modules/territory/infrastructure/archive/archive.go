// Package archive stores copies of imported source documents.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

type Driver string

const (
	DriverNone       Driver = "none"
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

var (
	ErrExists   = errors.New("archive object already exists")
	ErrNotFound = errors.New("archive object not found")
	ErrBadKey   = errors.New("invalid archive key")
)

type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

type Info struct {
	Key         string            `json:"key"`
	Size        int64             `json:"size"`
	ContentType string            `json:"content_type,omitempty"`
	ETag        string            `json:"etag"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Store is create-only: Put on an existing key fails with ErrExists.
type Store interface {
	Driver() Driver
	Put(ctx context.Context, key string, data []byte, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, []byte, error)
}

// CleanKey rejects empty, absolute and traversing keys.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if key == "" {
		return "", errors.Wrap(ErrBadKey, "empty key")
	}
	if strings.HasPrefix(key, "/") {
		return "", errors.Wrap(ErrBadKey, "absolute key")
	}
	if strings.Contains(key, "..") {
		return "", errors.Wrap(ErrBadKey, "key contains '..'")
	}
	return path.Clean(key), nil
}

func etag(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
