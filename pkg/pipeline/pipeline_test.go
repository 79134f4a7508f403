package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imgvault/imgvault/pkg/errors"
	"github.com/imgvault/imgvault/pkg/storage"
	"github.com/imgvault/imgvault/pkg/uploader"
)

// fakeConverter materializes a synthetic single-manifest layout: one config
// blob and one layer blob per convert call.
type fakeConverter struct {
	layerContent []byte
	calls        int
}

func (f *fakeConverter) Convert(_ context.Context, _, tag, dir string) error {
	f.calls++

	writeBlob := func(mediaType string, content []byte) ociv1.Descriptor {
		d := digest.FromBytes(content)
		blobDir := filepath.Join(dir, "blobs", d.Algorithm().String())
		if err := os.MkdirAll(blobDir, 0755); err != nil {
			panic(err)
		}
		if err := os.WriteFile(filepath.Join(blobDir, d.Encoded()), content, 0644); err != nil {
			panic(err)
		}
		return ociv1.Descriptor{MediaType: mediaType, Digest: d, Size: int64(len(content))}
	}

	configDesc := writeBlob(ociv1.MediaTypeImageConfig, []byte(`{"os":"linux"}`))
	layerDesc := writeBlob(ociv1.MediaTypeImageLayerGzip, f.layerContent)

	manifest := ociv1.Manifest{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ociv1.MediaTypeImageManifest,
		Config:    configDesc,
		Layers:    []ociv1.Descriptor{layerDesc},
	}
	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		panic(err)
	}
	manifestDesc := writeBlob(ociv1.MediaTypeImageManifest, manifestJSON)
	manifestDesc.Annotations = map[string]string{ociv1.AnnotationRefName: tag}

	idx := ociv1.Index{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ociv1.MediaTypeImageIndex,
		Manifests: []ociv1.Descriptor{manifestDesc},
	}
	idxJSON, err := json.Marshal(idx)
	if err != nil {
		panic(err)
	}
	return os.WriteFile(filepath.Join(dir, "index.json"), idxJSON, 0644)
}

// failingConverter simulates a conversion subprocess exiting non-zero.
type failingConverter struct{}

func (failingConverter) Convert(context.Context, string, string, string) error {
	return errors.NewWithContext(errors.ErrCodeConversion, "image conversion failed",
		map[string]any{"exit_code": 1})
}

func newTestPipeline(t *testing.T, store storage.ObjectStore, conv *fakeConverter) (*Pipeline, string) {
	t.Helper()
	workDir := t.TempDir()
	p := New(store,
		WithConverter(conv),
		WithWorkDir(workDir),
		WithUploader(uploader.New(store, uploader.WithInitialBackoff(time.Millisecond))),
	)
	return p, workDir
}

func TestRunUploadsAllBlobs(t *testing.T) {
	store := storage.NewMemory()
	p, workDir := newTestPipeline(t, store, &fakeConverter{layerContent: []byte("layer bits")})

	res, err := p.Run(context.Background(), "alpine", "3.18")
	require.NoError(t, err)

	// manifest + config + layer
	assert.Equal(t, 3, res.TotalBlobs)
	assert.Equal(t, 3, res.Uploaded)
	assert.Equal(t, 0, res.Skipped)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 3, store.Len())
	assert.NotEmpty(t, res.RunID)

	// The scoped temp layout is gone.
	entries, err := os.ReadDir(workDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunIsIdempotent(t *testing.T) {
	store := storage.NewMemory()
	conv := &fakeConverter{layerContent: []byte("layer bits")}
	p, _ := newTestPipeline(t, store, conv)

	_, err := p.Run(context.Background(), "alpine", "3.18")
	require.NoError(t, err)

	res, err := p.Run(context.Background(), "alpine", "3.18")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Uploaded)
	assert.Equal(t, 3, res.Skipped)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 2, conv.calls)
}

func TestRunConversionFailureIsFatal(t *testing.T) {
	store := storage.NewMemory()
	workDir := t.TempDir()
	p := New(store, WithConverter(failingConverter{}), WithWorkDir(workDir))

	res, err := p.Run(context.Background(), "alpine", "3.18")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConversion))
	assert.Nil(t, res)

	// No uploads attempted, no temp state left behind.
	assert.Equal(t, 0, store.Len())
	entries, readErr := os.ReadDir(workDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

// brokenLayoutConverter claims success but leaves no index behind.
type brokenLayoutConverter struct{}

func (brokenLayoutConverter) Convert(context.Context, string, string, string) error {
	return nil
}

func TestRunLayoutFailureIsFatal(t *testing.T) {
	store := storage.NewMemory()
	p := New(store, WithConverter(brokenLayoutConverter{}), WithWorkDir(t.TempDir()))

	res, err := p.Run(context.Background(), "alpine", "3.18")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeLayout))
	assert.Nil(t, res)
	assert.Equal(t, 0, store.Len())
}

// rejectingStore refuses puts for one specific key.
type rejectingStore struct {
	*storage.Memory
	rejectKey string
}

func (r *rejectingStore) Put(ctx context.Context, key string, rd io.Reader, size int64, ct string) error {
	if key == r.rejectKey {
		return fmt.Errorf("permanent storage refusal")
	}
	return r.Memory.Put(ctx, key, rd, size, ct)
}

func TestRunPartialFailureSignalsError(t *testing.T) {
	layerContent := []byte("layer bits")
	layerKey := "blobs/sha256/" + digest.FromBytes(layerContent).Encoded()
	store := &rejectingStore{Memory: storage.NewMemory(), rejectKey: layerKey}

	workDir := t.TempDir()
	p := New(store,
		WithConverter(&fakeConverter{layerContent: layerContent}),
		WithWorkDir(workDir),
		WithUploader(uploader.New(store,
			uploader.WithMaxRetries(1),
			uploader.WithInitialBackoff(time.Millisecond))),
	)

	res, err := p.Run(context.Background(), "alpine", "3.18")
	require.Error(t, err, "fire-and-forget callers must observe upload failures")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUpload))

	require.NotNil(t, res, "result must still carry per-blob outcomes")
	assert.Equal(t, 2, res.Uploaded)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, layerKey, res.Failures[0].Task.RemoteKey)
}

func TestRunCancelled(t *testing.T) {
	store := storage.NewMemory()
	p, _ := newTestPipeline(t, store, &fakeConverter{layerContent: []byte("x")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, "alpine", "3.18")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCancelled))
}

func TestRunInvalidReference(t *testing.T) {
	p := New(storage.NewMemory(), WithWorkDir(t.TempDir()))

	tests := []struct {
		name  string
		image string
		tag   string
	}{
		{name: "spaces in name", image: "not a ref", tag: "latest"},
		{name: "uppercase name", image: "Alpine", tag: "latest"},
		{name: "bad tag", image: "alpine", tag: "!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Run(context.Background(), tt.image, tt.tag)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidRequest))
		})
	}
}
