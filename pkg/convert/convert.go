/*
Copyright © 2025 Imgvault Authors
SPDX-License-Identifier: Apache-2.0
*/

package convert

import (
	"context"
	"fmt"
)

// Converter materializes image:tag as an OCI image layout rooted at dir.
// Implementations must treat any failure to produce a complete layout as an
// error; partial output is never success.
type Converter interface {
	Convert(ctx context.Context, image, tag, dir string) error
}

// SourceRef formats the remote image locator consumed by skopeo.
func SourceRef(image, tag string) string {
	return fmt.Sprintf("docker://%s:%s", image, tag)
}

// DestRef formats the OCI layout destination consumed by skopeo.
func DestRef(dir, tag string) string {
	return fmt.Sprintf("oci:%s:%s", dir, tag)
}
