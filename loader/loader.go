// Package loader moves dependency bundles onto the shared file system. The CLI side
// uploads a zipped bundle to S3, the efs-loader function downloads it and unpacks it
// below the mount path where other functions resolve their modules.
package loader

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	uuid "github.com/satori/go.uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	validator "gopkg.in/go-playground/validator.v9"
)

// FunctionName is the target name of the loader function.
const FunctionName = "efs-loader"

// ModulesDir is where bundles are unpacked relative to the mount path.
const ModulesDir = "res/modules"

// Request is the loader invocation payload.
type Request struct {
	FunctionName string `json:"functionName" validate:"required,excludesall=/\\"`
	EFSID        string `json:"efsId" validate:"required"`
	ModulesS3Key string `json:"modulesS3Key" validate:"required"`
	S3Bucket     string `json:"s3Bucket" validate:"required"`
}

// MarshalLogObject is a part of zapcore.ObjectMarshaler interface.
func (r Request) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("functionName", r.FunctionName)
	enc.AddString("efsId", r.EFSID)
	enc.AddString("modulesS3Key", r.ModulesS3Key)
	enc.AddString("s3Bucket", r.S3Bucket)
	return nil
}

// Response is the loader invocation result.
type Response struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Err converts an unsuccessful response into *ErrLoadFailed.
func (r Response) Err() error {
	if r.Success {
		return nil
	}
	return &ErrLoadFailed{Message: r.ErrorMessage}
}

// Key returns the S3 key a bundle named name is uploaded under.
func Key(name string) string {
	return path.Join("RWS-modules", name+".zip")
}

// Uploader puts bundles into the modules bucket.
type Uploader struct {
	Service s3manageriface.UploaderAPI
	Bucket  string
	Log     *zap.Logger
}

// Upload sends the bundle at file to the bucket under Key(name) and returns the key.
func (u Uploader) Upload(ctx context.Context, name, file string) (string, error) {
	if u.Bucket == "" {
		return "", &ErrUploadFailed{Key: Key(name), Message: "modules bucket is not configured"}
	}

	f, err := os.Open(file)
	if err != nil {
		return "", &ErrUploadFailed{Key: Key(name), Original: err}
	}
	defer f.Close()

	key := Key(name)
	out, err := u.Service.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/zip"),
	})
	if err != nil {
		return "", &ErrUploadFailed{Key: key, Original: err}
	}

	u.Log.Info("Modules bundle uploaded.", zap.String("bucket", u.Bucket), zap.String("key", key), zap.String("location", out.Location))
	return key, nil
}

// Handler unpacks bundles on the shared file system. It runs inside the loader
// function.
type Handler struct {
	Downloader s3manageriface.DownloaderAPI
	// Root is the mount path of the shared file system.
	Root    string
	TempDir string
	Log     *zap.Logger
}

// Handle downloads the requested bundle and replaces the modules of the function with
// its content. Failures are reported in the response rather than as an invocation
// error so callers always get a structured result.
func (h Handler) Handle(ctx context.Context, req Request) (Response, error) {
	if err := h.load(ctx, req); err != nil {
		h.Log.Error("Loading modules failed.", zap.Object("request", req), zap.Error(err))
		return Response{Success: false, ErrorMessage: err.Error()}, nil
	}
	h.Log.Info("Modules loaded.", zap.Object("request", req))
	return Response{Success: true}, nil
}

func (h Handler) load(ctx context.Context, req Request) error {
	if err := validator.New().Struct(req); err != nil {
		return &ErrInvalidRequest{Message: err.Error()}
	}
	if req.FunctionName == "." || req.FunctionName == ".." {
		return &ErrInvalidRequest{Message: "function name must name a directory"}
	}

	tmpDir := h.TempDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	bundle := filepath.Join(tmpDir, "rws-modules-"+uuid.NewV4().String()+".zip")
	defer os.Remove(bundle)

	if err := h.download(ctx, req, bundle); err != nil {
		return err
	}

	target := filepath.Join(h.Root, filepath.FromSlash(ModulesDir), req.FunctionName)
	if err := os.RemoveAll(target); err != nil {
		return err
	}
	if err := Extract(bundle, target); err != nil {
		return err
	}
	return chmodTree(target, 0o755)
}

func (h Handler) download(ctx context.Context, req Request, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := h.Downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(req.S3Bucket),
		Key:    aws.String(req.ModulesS3Key),
	})
	if err != nil {
		return fmt.Errorf("downloading s3://%s/%s: %w", req.S3Bucket, req.ModulesS3Key, err)
	}
	h.Log.Debug("Modules bundle downloaded.", zap.String("key", req.ModulesS3Key), zap.Int64("bytes", n))
	return nil
}

// Extract unpacks the zip archive at file into dir. Entries escaping dir are rejected,
// as are symlinks pointing outside dir and entries written through an existing symlink.
func Extract(file, dir string) error {
	r, err := zip.OpenReader(file)
	if err != nil {
		return err
	}
	defer r.Close()

	root, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	if root, err = filepath.EvalSymlinks(root); err != nil {
		return err
	}

	for _, entry := range r.File {
		target := filepath.Join(root, filepath.FromSlash(entry.Name))
		if !within(root, target) {
			return &ErrUnsafeEntry{Name: entry.Name}
		}
		linked, err := throughSymlink(root, target)
		if err != nil {
			return err
		}
		if linked {
			return &ErrUnsafeEntry{Name: entry.Name}
		}
		if err := extractEntry(root, entry, target); err != nil {
			return err
		}
	}
	return nil
}

func within(root, path string) bool {
	return path == root || strings.HasPrefix(path, root+string(os.PathSeparator))
}

// throughSymlink reports whether target or any of its existing parents below root is
// a symlink.
func throughSymlink(root, target string) (bool, error) {
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." {
		return false, err
	}
	current := root
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		current = filepath.Join(current, part)
		info, err := os.Lstat(current)
		if os.IsNotExist(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return true, nil
		}
	}
	return false, nil
}

func extractEntry(root string, entry *zip.File, target string) error {
	mode := entry.Mode()
	if mode.IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	if mode&os.ModeSymlink != 0 {
		link, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		dest := filepath.FromSlash(string(link))
		if filepath.IsAbs(dest) || !within(root, filepath.Join(filepath.Dir(target), dest)) {
			return &ErrUnsafeEntry{Name: entry.Name}
		}
		return os.Symlink(dest, target)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm()|0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func chmodTree(dir string, mode os.FileMode) error {
	return filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		return os.Chmod(p, mode)
	})
}
