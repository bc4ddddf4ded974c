package mediastore

import (
	"context"
	"fmt"
	"os"
	"sort"

	"neuroscreen/internal/config"
)

// Handle is a staged local copy of submitted media. Paths are sorted and
// hold one entry for a single object, or one per file for a series.
type Handle struct {
	// Dir is the temporary staging directory owning every path.
	Dir   string
	Paths []string
}

// Path returns the single staged file. Series handles should be walked
// through Paths instead.
func (h *Handle) Path() string {
	if h == nil || len(h.Paths) == 0 {
		return ""
	}
	return h.Paths[0]
}

// Cleanup removes the staged copy. Safe to call more than once.
func (h *Handle) Cleanup() error {
	if h == nil || h.Dir == "" {
		return nil
	}
	err := os.RemoveAll(h.Dir)
	h.Dir = ""
	h.Paths = nil
	return err
}

// Store resolves media references into staged local files.
type Store interface {
	// Fetch stages the referenced media. A reference naming a directory
	// or object prefix yields a multi-file handle.
	Fetch(ctx context.Context, ref string) (*Handle, error)
}

// New builds the store selected by the media_store config section.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.MediaStore.Backend {
	case "local":
		return NewLocal(cfg.MediaStore.LocalRoot, cfg.Paths.StagingDir)
	case "s3":
		return NewS3(ctx, cfg.MediaStore, cfg.Paths.StagingDir)
	default:
		return nil, fmt.Errorf("unknown media store backend %q", cfg.MediaStore.Backend)
	}
}

func newStagingDir(stagingRoot string) (string, error) {
	if err := os.MkdirAll(stagingRoot, 0o755); err != nil {
		return "", fmt.Errorf("create staging root: %w", err)
	}
	dir, err := os.MkdirTemp(stagingRoot, "media-*")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	return dir, nil
}

func finishHandle(dir string, paths []string) *Handle {
	sort.Strings(paths)
	return &Handle{Dir: dir, Paths: paths}
}
