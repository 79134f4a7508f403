/*
Copyright © 2025 Imgvault Authors
SPDX-License-Identifier: Apache-2.0
*/

package layout

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/opencontainers/go-digest"
	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/imgvault/imgvault/pkg/errors"
)

// indexFile is the well-known index name at the root of an OCI image layout.
const indexFile = "index.json"

// Task describes one blob to be transferred to the destination store.
// Tasks are produced by Walk and consumed by the uploader.
type Task struct {
	// Digest uniquely identifies the blob content.
	Digest digest.Digest `json:"digest" yaml:"digest"`
	// MediaType is the descriptor media type (manifest, config, or layer).
	MediaType string `json:"mediaType" yaml:"mediaType"`
	// Size is the blob size in bytes as declared by its descriptor.
	Size int64 `json:"size" yaml:"size"`
	// LocalPath is the blob file within the layout.
	LocalPath string `json:"-" yaml:"-"`
	// RemoteKey is the destination object key, a pure function of Digest.
	RemoteKey string `json:"remoteKey" yaml:"remoteKey"`
}

// RemoteKey derives the destination object key for a digest. The key is a
// pure deterministic function of the digest, which is what makes re-runs
// idempotent: identical content always lands on the identical key.
func RemoteKey(d digest.Digest) string {
	return path.Join("blobs", d.Algorithm().String(), d.Encoded())
}

// BlobPath returns the local file backing a digest within a layout root.
func BlobPath(root string, d digest.Digest) string {
	return filepath.Join(root, "blobs", d.Algorithm().String(), d.Encoded())
}

// Walk parses the layout rooted at root and returns the ordered tasks
// covering the manifest selected by tag, its config, and every layer.
// Image index descriptors (multi-platform images) are expanded: the index
// blob and each platform manifest it references are all included.
//
// All structural problems surface as LAYOUT-coded errors: a missing or
// malformed index, no manifest matching the tag, or a referenced blob
// absent from disk.
func Walk(root, tag string) ([]Task, error) {
	idx, err := readIndex(filepath.Join(root, indexFile))
	if err != nil {
		return nil, err
	}

	desc, err := selectManifest(idx, tag)
	if err != nil {
		return nil, err
	}

	tasks, err := collect(root, desc)
	if err != nil {
		return nil, err
	}

	// Fail fast: verify every blob is present before any upload starts.
	for _, t := range tasks {
		info, statErr := os.Stat(t.LocalPath)
		if statErr != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeLayout,
				"referenced blob missing from layout", statErr,
				map[string]any{"digest": t.Digest.String(), "path": t.LocalPath})
		}
		if info.Size() != t.Size {
			return nil, errors.NewWithContext(errors.ErrCodeLayout,
				"blob size does not match descriptor",
				map[string]any{
					"digest":     t.Digest.String(),
					"descriptor": t.Size,
					"on_disk":    info.Size(),
				})
		}
	}

	return tasks, nil
}

// readIndex reads and validates the top-level index document.
func readIndex(path string) (*ociv1.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLayout, "failed to read layout index", err)
	}

	var idx ociv1.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLayout, "malformed layout index", err)
	}
	if len(idx.Manifests) == 0 {
		return nil, errors.New(errors.ErrCodeLayout, "layout index lists no manifests")
	}
	return &idx, nil
}

// selectManifest picks the manifest descriptor matching the requested tag
// via the standard ref.name annotation. A single-entry index matches any
// tag, which is the common shape produced by one-image conversions.
func selectManifest(idx *ociv1.Index, tag string) (ociv1.Descriptor, error) {
	if len(idx.Manifests) == 1 {
		return idx.Manifests[0], nil
	}
	for _, m := range idx.Manifests {
		if m.Annotations[ociv1.AnnotationRefName] == tag {
			return m, nil
		}
	}
	return ociv1.Descriptor{}, errors.NewWithContext(errors.ErrCodeLayout,
		fmt.Sprintf("no manifest matches tag %q", tag),
		map[string]any{"manifests": len(idx.Manifests)})
}

// collect expands a manifest descriptor into its upload tasks. Image index
// descriptors recurse into every referenced platform manifest.
func collect(root string, desc ociv1.Descriptor) ([]Task, error) {
	if err := desc.Digest.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLayout, "invalid manifest digest", err)
	}

	self := Task{
		Digest:    desc.Digest,
		MediaType: desc.MediaType,
		Size:      desc.Size,
		LocalPath: BlobPath(root, desc.Digest),
		RemoteKey: RemoteKey(desc.Digest),
	}

	switch desc.MediaType {
	case ociv1.MediaTypeImageIndex, "application/vnd.docker.distribution.manifest.list.v2+json":
		return collectIndex(root, self)
	default:
		return collectManifest(root, self)
	}
}

func collectIndex(root string, self Task) ([]Task, error) {
	data, err := os.ReadFile(self.LocalPath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLayout, "failed to read nested index blob", err)
	}

	var idx ociv1.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLayout, "malformed nested index blob", err)
	}

	tasks := []Task{self}
	for _, m := range idx.Manifests {
		children, err := collect(root, m)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, children...)
	}
	return tasks, nil
}

func collectManifest(root string, self Task) ([]Task, error) {
	data, err := os.ReadFile(self.LocalPath)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeLayout,
			"failed to read manifest blob", err,
			map[string]any{"digest": self.Digest.String()})
	}

	var manifest ociv1.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeLayout,
			"malformed manifest blob", err,
			map[string]any{"digest": self.Digest.String()})
	}

	if err := manifest.Config.Digest.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeLayout, "invalid config digest", err)
	}

	tasks := make([]Task, 0, len(manifest.Layers)+2)
	tasks = append(tasks, self)
	tasks = append(tasks, Task{
		Digest:    manifest.Config.Digest,
		MediaType: manifest.Config.MediaType,
		Size:      manifest.Config.Size,
		LocalPath: BlobPath(root, manifest.Config.Digest),
		RemoteKey: RemoteKey(manifest.Config.Digest),
	})

	for _, layer := range manifest.Layers {
		if err := layer.Digest.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeLayout, "invalid layer digest", err)
		}
		tasks = append(tasks, Task{
			Digest:    layer.Digest,
			MediaType: layer.MediaType,
			Size:      layer.Size,
			LocalPath: BlobPath(root, layer.Digest),
			RemoteKey: RemoteKey(layer.Digest),
		})
	}

	return tasks, nil
}
