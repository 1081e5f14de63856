package archive

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/go-faster/errors"
)

// FSStore keeps objects as files under a root directory with a JSON
// ".meta" sidecar per object.
type FSStore struct {
	root string
}

func NewFS(root string) (*FSStore, error) {
	if root == "" {
		root = "./archive"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create archive root")
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) Driver() Driver { return DriverFilesystem }

func (s *FSStore) paths(key string) (string, string, string, error) {
	k, err := CleanKey(key)
	if err != nil {
		return "", "", "", err
	}
	data := filepath.Join(s.root, filepath.FromSlash(k))
	return k, data, data + ".meta", nil
}

func (s *FSStore) Put(_ context.Context, key string, data []byte, opts PutOptions) (Info, error) {
	k, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return Info{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return Info{}, errors.Wrap(err, "mkdir")
	}
	f, err := os.OpenFile(dataPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return Info{}, ErrExists
		}
		return Info{}, errors.Wrap(err, "create object")
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return Info{}, errors.Wrap(err, "write object")
	}
	if err := f.Close(); err != nil {
		return Info{}, errors.Wrap(err, "close object")
	}

	info := Info{
		Key:         k,
		Size:        int64(len(data)),
		ContentType: opts.ContentType,
		ETag:        etag(data),
		Metadata:    opts.Metadata,
		CreatedAt:   time.Now().UTC(),
	}
	meta, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return Info{}, errors.Wrap(err, "encode meta")
	}
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return Info{}, errors.Wrap(err, "write meta")
	}
	return info, nil
}

func (s *FSStore) Get(_ context.Context, key string) (Info, []byte, error) {
	_, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return Info{}, nil, err
	}
	data, err := os.ReadFile(dataPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Info{}, nil, ErrNotFound
		}
		return Info{}, nil, errors.Wrap(err, "read object")
	}
	var info Info
	if raw, err := os.ReadFile(metaPath); err == nil {
		_ = json.Unmarshal(raw, &info)
	}
	return info, data, nil
}
