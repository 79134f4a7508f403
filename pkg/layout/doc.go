// Package layout walks a local OCI image layout and enumerates every blob
// required to reconstruct an image: the manifest itself, its config, and all
// layer blobs. Each blob is resolved to its on-disk path and the deterministic
// destination key derived from its digest.
//
// The walker is read-only and fails fast: every referenced blob must exist on
// disk (with the size the descriptor declares) before any upload is attempted.
package layout
