// SPDX-License-Identifier: MIT

// Package inputset assembles CC4S calculation directories: the cc4s.in
// file plus the tensor object files staged into the in/ subdirectory.
package inputset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/cc4sflow/internal/fsutil"
	"github.com/ManuGH/cc4sflow/internal/input"
	xglog "github.com/ManuGH/cc4sflow/internal/log"
	"github.com/ManuGH/cc4sflow/internal/metrics"
	"github.com/ManuGH/cc4sflow/internal/object"
)

// InDirName is the subdirectory the staged object files go into.
const InDirName = "in"

var (
	// ErrBadObjectPath is returned for object paths that cannot be
	// reduced to a base name.
	ErrBadObjectPath = errors.New("invalid object file path")
)

// StagedObject maps one tensor object from a previous calculation into
// the in/ directory of the new one.
type StagedObject struct {
	Class *object.Class
	Src   string // descriptor path, elements path, or bare base name
	Dest  string // bare file or base name inside in/
}

// InputSet is everything needed to materialize a CC4S calculation
// directory.
type InputSet struct {
	Doc       input.Document
	Objects   []StagedObject
	LinkFiles bool // symlink instead of copy
}

// splitBase reduces an object file path to its directory and base name.
// Accepted forms: the descriptor ("CoulombVertex.yaml"), an elements file
// ("CoulombVertex.elements") or the bare base ("CoulombVertex").
func splitBase(path string) (dir, base string, err error) {
	if path == "" || strings.HasSuffix(path, ".") {
		return "", "", fmt.Errorf("%w: %q", ErrBadObjectPath, path)
	}
	ext := filepath.Ext(path)
	switch ext {
	case "":
		return filepath.Dir(path), filepath.Base(path), nil
	case object.DescriptorExt, ".elements":
		stem := strings.TrimSuffix(filepath.Base(path), ext)
		if strings.Contains(stem, ".") {
			return "", "", fmt.Errorf("%w: %q has more than one suffix", ErrBadObjectPath, path)
		}
		return filepath.Dir(path), stem, nil
	default:
		return "", "", fmt.Errorf("%w: %q must end in %q or %q", ErrBadObjectPath, path, object.DescriptorExt, ".elements")
	}
}

// Write materializes the input set in dir, creating it if needed.
func (s *InputSet) Write(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create calculation dir: %w", err)
	}

	if err := s.Doc.WriteFile(filepath.Join(dir, input.FileName)); err != nil {
		return err
	}

	if len(s.Objects) == 0 {
		return nil
	}

	inDir := filepath.Join(dir, InDirName)
	if err := os.MkdirAll(inDir, 0o750); err != nil {
		return fmt.Errorf("create %s dir: %w", InDirName, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, obj := range s.Objects {
		g.Go(func() error {
			return s.stageObject(ctx, inDir, obj)
		})
	}
	return g.Wait()
}

// stageObject links or copies one object's descriptor, element files and
// sidecars into inDir.
func (s *InputSet) stageObject(ctx context.Context, inDir string, obj StagedObject) error {
	logger := xglog.WithComponentFromContext(ctx, "inputset")

	srcDir, srcBase, err := splitBase(obj.Src)
	if err != nil {
		return err
	}
	destDir, destBase, err := splitBase(obj.Dest)
	if err != nil {
		return err
	}
	if destDir != "." {
		return fmt.Errorf("%w: destination %q must be a bare name, not a path", ErrBadObjectPath, obj.Dest)
	}

	srcPrefix := filepath.Join(srcDir, srcBase)
	type pair struct {
		src, dest string
		required  bool
	}
	pairs := []pair{{src: srcPrefix + object.DescriptorExt, dest: destBase + object.DescriptorExt, required: true}}
	for i, src := range obj.Class.ElementsFiles(srcPrefix) {
		pairs = append(pairs, pair{src: src, dest: destBase + obj.Class.ElementsExts[i]})
	}
	for i, src := range obj.Class.SidecarFiles(srcPrefix) {
		pairs = append(pairs, pair{src: src, dest: obj.Class.Sidecars[i]})
	}

	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := os.Stat(p.src); err != nil {
			if os.IsNotExist(err) && !p.required {
				logger.Debug().Str(xglog.FieldSrcPath, p.src).Msg("optional object file absent, skipping")
				continue
			}
			return fmt.Errorf("stage %s: %w", obj.Class.Name, err)
		}

		dest, err := fsutil.ConfineRelPath(inDir, p.dest)
		if err != nil {
			return fmt.Errorf("stage %s: %w", obj.Class.Name, err)
		}

		absSrc, err := filepath.Abs(p.src)
		if err != nil {
			return fmt.Errorf("stage %s: %w", obj.Class.Name, err)
		}

		if s.LinkFiles {
			err = linkFile(absSrc, dest)
			metrics.StagedObjectFiles.WithLabelValues("link").Inc()
		} else {
			err = copyFile(absSrc, dest)
			metrics.StagedObjectFiles.WithLabelValues("copy").Inc()
		}
		if err != nil {
			return fmt.Errorf("stage %s: %w", obj.Class.Name, err)
		}
		logger.Debug().
			Str(xglog.FieldSrcPath, absSrc).
			Str(xglog.FieldDstPath, dest).
			Bool("link", s.LinkFiles).
			Msg("staged object file")
	}
	return nil
}

// linkFile symlinks src to dest, replacing an existing link or file.
// Objects staged concurrently may share sidecar files (State.yaml), so an
// existing link to the same source counts as done.
func linkFile(src, dest string) error {
	for range 3 {
		err := os.Symlink(src, dest)
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return err
		}
		if target, rerr := os.Readlink(dest); rerr == nil && target == src {
			return nil
		}
		if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return fmt.Errorf("link %s: destination keeps reappearing", dest)
}

// copyFile copies src to dest atomically, so concurrent staging of a
// shared sidecar never leaves a torn file behind.
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	pending, err := renameio.NewPendingFile(dest, renameio.WithPermissions(0o640))
	if err != nil {
		return err
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := io.Copy(pending, in); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}
