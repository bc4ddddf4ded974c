package mediastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"neuroscreen/internal/fileutil"
	"neuroscreen/internal/services"
)

// LocalStore serves media references out of a root directory.
type LocalStore struct {
	root    string
	staging string
}

// NewLocal builds a store reading from root and staging copies under
// stagingRoot.
func NewLocal(root, stagingRoot string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("local media store requires a root directory")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	return &LocalStore{root: abs, staging: stagingRoot}, nil
}

// Fetch copies the referenced file, or every regular file in the
// referenced directory, into a fresh staging directory.
func (s *LocalStore) Fetch(ctx context.Context, ref string) (*Handle, error) {
	source, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, services.Wrap(services.ErrUnreadableMedia, "mediastore", "fetch",
			fmt.Sprintf("media reference %q not found", ref), err)
	}

	dir, err := newStagingDir(s.staging)
	if err != nil {
		return nil, err
	}

	var paths []string
	if info.IsDir() {
		entries, readErr := os.ReadDir(source)
		if readErr != nil {
			_ = os.RemoveAll(dir)
			return nil, services.Wrap(services.ErrUnreadableMedia, "mediastore", "fetch",
				"read media directory", readErr)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := ctx.Err(); err != nil {
				_ = os.RemoveAll(dir)
				return nil, err
			}
			dst := filepath.Join(dir, entry.Name())
			if copyErr := copyFile(filepath.Join(source, entry.Name()), dst); copyErr != nil {
				_ = os.RemoveAll(dir)
				return nil, copyErr
			}
			paths = append(paths, dst)
		}
		if len(paths) == 0 {
			_ = os.RemoveAll(dir)
			return nil, services.Wrap(services.ErrUnreadableMedia, "mediastore", "fetch",
				fmt.Sprintf("media directory %q contains no files", ref), nil)
		}
	} else {
		dst := filepath.Join(dir, filepath.Base(source))
		if copyErr := copyFile(source, dst); copyErr != nil {
			_ = os.RemoveAll(dir)
			return nil, copyErr
		}
		paths = append(paths, dst)
	}

	return finishHandle(dir, paths), nil
}

// resolve joins ref under the root and rejects references escaping it.
func (s *LocalStore) resolve(ref string) (string, error) {
	cleaned := filepath.Clean("/" + ref)
	full := filepath.Join(s.root, cleaned)
	if full != s.root && !strings.HasPrefix(full, s.root+string(os.PathSeparator)) {
		return "", services.Wrap(services.ErrValidation, "mediastore", "resolve",
			fmt.Sprintf("media reference %q escapes the store root", ref), nil)
	}
	return full, nil
}

// copyFile stages one media file with integrity verification so a
// truncated or corrupted copy never reaches a pipeline.
func copyFile(src, dst string) error {
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return services.Wrap(services.ErrUnreadableMedia, "mediastore", "copy",
			fmt.Sprintf("stage %s", filepath.Base(src)), err)
	}
	return nil
}
