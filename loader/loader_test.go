package loader

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUploader struct {
	input *s3manager.UploadInput
	body  []byte
	err   error
}

func (f *fakeUploader) Upload(input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return f.UploadWithContext(context.Background(), input, opts...)
}

func (f *fakeUploader) UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = input
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3manager.UploadOutput{Location: "https://bucket.s3.amazonaws.com/" + aws.StringValue(input.Key)}, nil
}

type fakeDownloader struct {
	objects map[string][]byte
}

func (f *fakeDownloader) Download(w io.WriterAt, input *s3.GetObjectInput, opts ...func(*s3manager.Downloader)) (int64, error) {
	return f.DownloadWithContext(context.Background(), w, input, opts...)
}

func (f *fakeDownloader) DownloadWithContext(ctx aws.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*s3manager.Downloader)) (int64, error) {
	body, ok := f.objects[aws.StringValue(input.Bucket)+"/"+aws.StringValue(input.Key)]
	if !ok {
		return 0, errors.New("NoSuchKey")
	}
	n, err := w.WriteAt(body, 0)
	return int64(n), err
}

func bundle(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.Nil(t, err)
		_, err = w.Write([]byte(content))
		require.Nil(t, err)
	}
	require.Nil(t, zw.Close())
	return buf.Bytes()
}

type entry struct {
	name    string
	content string
	symlink bool
}

func orderedBundle(t *testing.T, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		header := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		header.SetMode(0o644)
		if e.symlink {
			header.SetMode(os.ModeSymlink | 0o777)
		}
		w, err := zw.CreateHeader(header)
		require.Nil(t, err)
		_, err = w.Write([]byte(e.content))
		require.Nil(t, err)
	}
	require.Nil(t, zw.Close())
	return buf.Bytes()
}

func TestUpload(t *testing.T) {
	file := filepath.Join(t.TempDir(), "RWS-node_modules.zip")
	require.Nil(t, os.WriteFile(file, []byte("zip"), 0o644))
	service := &fakeUploader{}
	u := Uploader{Service: service, Bucket: "rws-modules", Log: zap.NewNop()}

	key, err := u.Upload(context.Background(), "hello", file)

	require.Nil(t, err)
	assert.Equal(t, "RWS-modules/hello.zip", key)
	assert.Equal(t, "rws-modules", aws.StringValue(service.input.Bucket))
	assert.Equal(t, []byte("zip"), service.body)
}

func TestUpload_NoBucket(t *testing.T) {
	u := Uploader{Service: &fakeUploader{}, Log: zap.NewNop()}

	_, err := u.Upload(context.Background(), "hello", "missing.zip")

	assert.Equal(t, &ErrUploadFailed{Key: "RWS-modules/hello.zip", Message: "modules bucket is not configured"}, err)
}

func TestHandle(t *testing.T) {
	root := t.TempDir()
	stale := filepath.Join(root, "res", "modules", "hello", "stale.js")
	require.Nil(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.Nil(t, os.WriteFile(stale, []byte("old"), 0o644))

	downloader := &fakeDownloader{objects: map[string][]byte{
		"rws-modules/RWS-modules/hello.zip": bundle(t, map[string]string{
			"dep/index.js":     "module.exports = 1",
			"dep/bin/run":      "#!/bin/sh",
			"dep/package.json": "{}",
		}),
	}}
	h := Handler{Downloader: downloader, Root: root, TempDir: t.TempDir(), Log: zap.NewNop()}

	resp, err := h.Handle(context.Background(), Request{
		FunctionName: "hello",
		EFSID:        "fs-1",
		ModulesS3Key: "RWS-modules/hello.zip",
		S3Bucket:     "rws-modules",
	})

	require.Nil(t, err)
	assert.Equal(t, Response{Success: true}, resp)

	target := filepath.Join(root, "res", "modules", "hello")
	content, err := os.ReadFile(filepath.Join(target, "dep", "index.js"))
	require.Nil(t, err)
	assert.Equal(t, "module.exports = 1", string(content))

	info, err := os.Stat(filepath.Join(target, "dep", "bin", "run"))
	require.Nil(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestHandle_DownloadFailure(t *testing.T) {
	h := Handler{Downloader: &fakeDownloader{}, Root: t.TempDir(), TempDir: t.TempDir(), Log: zap.NewNop()}

	resp, err := h.Handle(context.Background(), Request{
		FunctionName: "hello",
		EFSID:        "fs-1",
		ModulesS3Key: "RWS-modules/hello.zip",
		S3Bucket:     "rws-modules",
	})

	require.Nil(t, err)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.ErrorMessage, "NoSuchKey")
	assert.Equal(t, &ErrLoadFailed{Message: resp.ErrorMessage}, resp.Err())
}

func TestHandle_InvalidRequest(t *testing.T) {
	h := Handler{Downloader: &fakeDownloader{}, Root: t.TempDir(), Log: zap.NewNop()}

	for _, name := range []string{"", "..", "a/b"} {
		resp, err := h.Handle(context.Background(), Request{FunctionName: name, EFSID: "fs-1", ModulesS3Key: "k", S3Bucket: "b"})

		require.Nil(t, err)
		assert.False(t, resp.Success, name)
	}
}

func TestExtract_RejectsEscapingEntries(t *testing.T) {
	file := filepath.Join(t.TempDir(), "evil.zip")
	require.Nil(t, os.WriteFile(file, bundle(t, map[string]string{"../evil.js": "x"}), 0o644))

	err := Extract(file, filepath.Join(t.TempDir(), "out"))

	assert.Equal(t, &ErrUnsafeEntry{Name: "../evil.js"}, err)
}

func TestExtract_RejectsSymlinkOutsideRoot(t *testing.T) {
	base := t.TempDir()
	outside := filepath.Join(base, "outside")
	require.Nil(t, os.MkdirAll(outside, 0o755))

	for _, link := range []string{outside, "../outside", "a/../../outside"} {
		file := filepath.Join(t.TempDir(), "evil.zip")
		require.Nil(t, os.WriteFile(file, orderedBundle(t,
			entry{name: "link", content: link, symlink: true},
			entry{name: "link/pwned.txt", content: "x"},
		), 0o644))

		err := Extract(file, filepath.Join(base, "root"))

		assert.Equal(t, &ErrUnsafeEntry{Name: "link"}, err, link)
		_, statErr := os.Stat(filepath.Join(outside, "pwned.txt"))
		assert.True(t, os.IsNotExist(statErr), link)
		os.RemoveAll(filepath.Join(base, "root"))
	}
}

func TestExtract_RejectsWritesThroughExistingSymlink(t *testing.T) {
	base := t.TempDir()
	outside := filepath.Join(base, "outside")
	root := filepath.Join(base, "root")
	require.Nil(t, os.MkdirAll(outside, 0o755))
	require.Nil(t, os.MkdirAll(root, 0o755))
	require.Nil(t, os.Symlink(outside, filepath.Join(root, "link")))
	file := filepath.Join(t.TempDir(), "evil.zip")
	require.Nil(t, os.WriteFile(file, orderedBundle(t, entry{name: "link/pwned.txt", content: "x"}), 0o644))

	err := Extract(file, root)

	assert.Equal(t, &ErrUnsafeEntry{Name: "link/pwned.txt"}, err)
	_, statErr := os.Stat(filepath.Join(outside, "pwned.txt"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtract_KeepsSymlinksInsideRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")
	file := filepath.Join(t.TempDir(), "bundle.zip")
	require.Nil(t, os.WriteFile(file, orderedBundle(t,
		entry{name: "lib/index.js", content: "module.exports = 1"},
		entry{name: ".bin/tool", content: "../lib/index.js", symlink: true},
	), 0o644))

	err := Extract(file, root)

	require.Nil(t, err)
	link, err := os.Readlink(filepath.Join(root, ".bin", "tool"))
	require.Nil(t, err)
	assert.Equal(t, filepath.Join("..", "lib", "index.js"), link)
	data, err := os.ReadFile(filepath.Join(root, ".bin", "tool"))
	require.Nil(t, err)
	assert.Equal(t, "module.exports = 1", string(data))
}
