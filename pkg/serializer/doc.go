// Package serializer renders pipeline results to stdout or a file in JSON,
// YAML, or table form.
package serializer
