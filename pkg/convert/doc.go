// Package convert materializes a container image as an OCI image layout on
// local disk.
//
// The conversion boundary is the Converter interface so the pipeline can be
// tested with a fake layout producer. Two implementations are provided:
// Skopeo shells out to the skopeo binary (the default), and Registry pulls
// the image directly from its registry using ORAS, for hosts where skopeo is
// not installed.
package convert
