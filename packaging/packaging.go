// Package packaging turns function source directories into deployable zip artifacts.
package packaging

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// ArtifactPrefix prefixes every artifact file name.
	ArtifactPrefix = "RWS-"
	modulesDir     = "node_modules"
	manifestFile   = "package.json"
)

var vcsDirs = map[string]struct{}{".git": {}, ".hg": {}, ".svn": {}}

// Artifact is a zip file produced by the archiver.
type Artifact struct {
	Path  string
	Size  int64
	Files int
}

// MarshalLogObject is a part of zapcore.ObjectMarshaler interface.
func (a Artifact) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("path", a.Path)
	enc.AddInt64("size", a.Size)
	enc.AddInt("files", a.Files)
	return nil
}

// Shell runs external commands.
type Shell interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// Filter reports whether the entry at slash-separated relative path rel is skipped.
type Filter func(rel string, d fs.DirEntry) bool

// Archiver builds zip artifacts.
type Archiver struct {
	Shell Shell
	Log   *zap.Logger
}

// ArtifactPath returns where the artifact of sourceDir is written inside workDir.
func ArtifactPath(sourceDir, workDir string) string {
	return filepath.Join(workDir, ArtifactPrefix+filepath.Base(sourceDir)+".zip")
}

// Archive packages sourceDir into workDir. Dependencies in node_modules are included
// only when full is set, installing them first if the directory has a manifest but no
// installed modules.
func (a Archiver) Archive(ctx context.Context, sourceDir, workDir string, full bool) (Artifact, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return Artifact{}, &ErrSourceNotFound{Path: sourceDir, Original: err}
	}
	if !info.IsDir() {
		return Artifact{}, &ErrSourceNotFound{Path: sourceDir}
	}

	if full {
		if err := a.installDependencies(ctx, sourceDir); err != nil {
			return Artifact{}, err
		}
	}

	filter := func(rel string, d fs.DirEntry) bool {
		return !full && d.IsDir() && rel == modulesDir
	}
	return a.ArchiveDir(ctx, sourceDir, ArtifactPath(sourceDir, workDir), filter)
}

func (a Archiver) installDependencies(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, manifestFile)); err != nil {
		return nil
	}
	if _, err := os.Stat(filepath.Join(dir, modulesDir)); err == nil {
		return nil
	}
	if a.Shell == nil {
		return &ErrArchiveFailed{Path: dir, Reason: "dependencies are not installed"}
	}
	a.log().Info("Installing function dependencies.", zap.String("dir", dir))
	return a.Shell.Run(ctx, dir, "npm", "install", "--omit=dev")
}

// ArchiveDir zips the tree rooted at dir into dest, replacing any existing file. The
// archive is written next to dest and renamed into place once complete. Version
// control directories and zip files are always skipped, entries rejected by skip are
// left out.
func (a Archiver) ArchiveDir(ctx context.Context, dir, dest string, skip Filter) (Artifact, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Artifact{}, &ErrArchiveFailed{Path: dest, Original: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return Artifact{}, &ErrArchiveFailed{Path: dest, Original: err}
	}
	defer os.Remove(tmp.Name())

	zw := zip.NewWriter(tmp)
	files, err := writeTree(ctx, zw, dir, dest, skip)
	if err == nil {
		err = zw.Close()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if ctx.Err() != nil {
			return Artifact{}, ctx.Err()
		}
		return Artifact{}, &ErrArchiveFailed{Path: dest, Original: err}
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return Artifact{}, &ErrArchiveFailed{Path: dest, Original: err}
	}
	info, err := os.Stat(dest)
	if err != nil {
		return Artifact{}, &ErrArchiveFailed{Path: dest, Original: err}
	}

	artifact := Artifact{Path: dest, Size: info.Size(), Files: files}
	a.log().Info("Artifact created.", zap.Object("artifact", artifact))
	return artifact, nil
}

func writeTree(ctx context.Context, zw *zip.Writer, dir, dest string, skip Filter) (int, error) {
	destAbs, _ := filepath.Abs(dest)
	files := 0

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if _, ok := vcsDirs[d.Name()]; ok {
				return filepath.SkipDir
			}
			if skip != nil && skip(rel, d) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".zip") {
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == destAbs {
			return nil
		}
		if skip != nil && skip(rel, d) {
			return nil
		}

		if err := addEntry(zw, path, rel, d); err != nil {
			return err
		}
		files++
		return nil
	})
	return files, err
}

func addEntry(zw *zip.Writer, path, rel string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = rel

	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, target)
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	header.Method = zip.Deflate
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func (a Archiver) log() *zap.Logger {
	if a.Log == nil {
		return zap.NewNop()
	}
	return a.Log
}
