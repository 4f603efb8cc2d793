package storefs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-carousel/carousel"
)

// ArtifactMeta is persisted next to each artifact.
type ArtifactMeta struct {
	Filename    string          `json:"filename"`
	ContentType string          `json:"content_type"`
	Format      carousel.Format `json:"format"`
	SlideIndex  int             `json:"slide_index"`
	Size        int64           `json:"size"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Store saves export artifacts under Root. Writes are atomic: a temp file
// is renamed into place, then a .meta.json sidecar is written.
type Store struct {
	Root string
	// Prefix is a subdirectory under Root for every artifact saved.
	Prefix string
	Now    func() time.Time
}

var _ carousel.ArtifactSink = (*Store)(nil)

// NewStore creates a filesystem-backed artifact store.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

// WithPrefix returns a copy of the store writing under prefix.
func (s *Store) WithPrefix(prefix string) *Store {
	if s == nil {
		return nil
	}
	clone := *s
	clone.Prefix = prefix
	return &clone
}

// Save writes the artifact to disk.
func (s *Store) Save(ctx context.Context, artifact carousel.Artifact) error {
	_ = ctx
	if err := s.check(artifact.Filename); err != nil {
		return err
	}

	pathOnDisk, err := s.resolvePath(s.key(artifact.Filename))
	if err != nil {
		return err
	}

	dir := filepath.Dir(pathOnDisk)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeAtomic(dir, ".carousel-*", pathOnDisk, artifact.Data); err != nil {
		return err
	}

	meta := ArtifactMeta{
		Filename:    artifact.Filename,
		ContentType: artifact.ContentType,
		Format:      artifact.Format,
		SlideIndex:  artifact.SlideIndex,
		Size:        int64(len(artifact.Data)),
		CreatedAt:   s.now(),
	}
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(pathOnDisk))
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return writeAtomic(dir, ".meta-*", metaPath(pathOnDisk), payload)
}

// Open reads an artifact saved under name.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, ArtifactMeta, error) {
	_ = ctx
	if err := s.check(name); err != nil {
		return nil, ArtifactMeta{}, err
	}

	pathOnDisk, err := s.resolvePath(s.key(name))
	if err != nil {
		return nil, ArtifactMeta{}, err
	}

	file, err := os.Open(pathOnDisk)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ArtifactMeta{}, carousel.NewError(carousel.KindNotFound, fmt.Sprintf("artifact %q not found", name), err)
		}
		return nil, ArtifactMeta{}, err
	}

	meta := readMeta(pathOnDisk)
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(pathOnDisk))
	}
	if meta.Size == 0 {
		if info, err := file.Stat(); err == nil {
			meta.Size = info.Size()
			if meta.CreatedAt.IsZero() {
				meta.CreatedAt = info.ModTime()
			}
		}
	}
	return file, meta, nil
}

// Delete removes an artifact and its sidecar.
func (s *Store) Delete(ctx context.Context, name string) error {
	_ = ctx
	if err := s.check(name); err != nil {
		return err
	}
	pathOnDisk, err := s.resolvePath(s.key(name))
	if err != nil {
		return err
	}
	_ = os.Remove(pathOnDisk)
	_ = os.Remove(metaPath(pathOnDisk))
	return nil
}

func (s *Store) check(name string) error {
	if s == nil {
		return carousel.NewError(carousel.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return carousel.NewError(carousel.KindValidation, "store root is required", nil)
	}
	if name == "" {
		return carousel.NewError(carousel.KindValidation, "artifact filename is required", nil)
	}
	return nil
}

func (s *Store) key(name string) string {
	if s.Prefix == "" {
		return name
	}
	return path.Join(s.Prefix, name)
}

func (s *Store) resolvePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" || rel == "." {
		return "", carousel.NewError(carousel.KindValidation, "invalid artifact filename", nil)
	}

	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", carousel.NewError(carousel.KindValidation, "artifact filename escapes root", nil)
	}
	return target, nil
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func writeAtomic(dir, pattern, target string, data []byte) error {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func readMeta(pathOnDisk string) ArtifactMeta {
	data, err := os.ReadFile(metaPath(pathOnDisk))
	if err != nil {
		return ArtifactMeta{}
	}
	var meta ArtifactMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return ArtifactMeta{}
	}
	return meta
}

func metaPath(pathOnDisk string) string {
	return pathOnDisk + ".meta.json"
}
