/*
Copyright © 2025 Imgvault Authors
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/imgvault/imgvault/pkg/config"
	"github.com/imgvault/imgvault/pkg/convert"
	"github.com/imgvault/imgvault/pkg/defaults"
	"github.com/imgvault/imgvault/pkg/errors"
	"github.com/imgvault/imgvault/pkg/pipeline"
	"github.com/imgvault/imgvault/pkg/serializer"
	"github.com/imgvault/imgvault/pkg/storage"
	"github.com/imgvault/imgvault/pkg/uploader"
)

const (
	converterSkopeo   = "skopeo"
	converterRegistry = "registry"
)

func mirrorCmd() *cli.Command {
	return &cli.Command{
		Name:  "mirror",
		Usage: "Convert an image to OCI layout and upload its blobs to the destination bucket",
		Description: `Materialize a container image as an OCI image layout and upload its
manifest, config, and layer blobs to an S3-compatible bucket (Cloudflare R2).

Blobs are stored under keys derived from their content digests
(blobs/<algorithm>/<hex>), so mirroring the same image twice uploads
nothing the second time.

# Examples

Mirror a public image:
  imgvault mirror --image alpine --tag 3.18

Mirror every platform of a multi-arch image with higher parallelism:
  imgvault mirror --image ghcr.io/org/app --tag v1.2.0 --concurrency 8

Pull without skopeo installed:
  imgvault mirror --image alpine --tag 3.18 --converter registry`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "image",
				Aliases:  []string{"i"},
				Usage:    "Source image name (e.g. alpine, ghcr.io/org/app)",
				Sources:  cli.EnvVars("IMGVAULT_IMAGE"),
				Required: true,
			},
			&cli.StringFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "Source image tag",
				Sources: cli.EnvVars("IMGVAULT_TAG"),
				Value:   "latest",
			},
			&cli.StringFlag{
				Name:  "converter",
				Usage: fmt.Sprintf("Layout converter: %s (subprocess) or %s (direct pull)", converterSkopeo, converterRegistry),
				Value: converterSkopeo,
			},
			&cli.StringFlag{
				Name:  "skopeo-path",
				Usage: "Override the skopeo binary path",
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Maximum simultaneous blob uploads",
				Sources: cli.EnvVars("IMGVAULT_CONCURRENCY"),
				Value:   uploader.DefaultConcurrency,
			},
			&cli.UintFlag{
				Name:  "retries",
				Usage: "Retries per blob after the first failed attempt",
				Value: uploader.DefaultMaxRetries,
			},
			&cli.Float64Flag{
				Name:  "rate-limit",
				Usage: "Storage request rate limit in requests/second (0 disables)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "End-to-end timeout for the mirror run",
				Value: defaults.MirrorTimeout,
			},
			&cli.StringFlag{
				Name:  "work-dir",
				Usage: "Parent directory for temporary image layouts (default: system temp)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Result output file path (default: stdout)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   fmt.Sprintf("Result output format: %v", serializer.SupportedFormats()),
				Value:   string(serializer.FormatYAML),
			},
		},
		Action: mirrorAction,
	}
}

func mirrorAction(ctx context.Context, cmd *cli.Command) error {
	outFormat := serializer.Format(cmd.String("format"))
	if outFormat.IsUnknown() {
		return errors.New(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown output format: %q", cmd.String("format")))
	}

	// Resolve destination credentials before any conversion work.
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	store, err := storage.NewS3(ctx, cfg)
	if err != nil {
		return err
	}

	conv, err := buildConverter(cmd)
	if err != nil {
		return err
	}

	p := pipeline.New(store,
		pipeline.WithConverter(conv),
		pipeline.WithWorkDir(cmd.String("work-dir")),
		pipeline.WithUploader(uploader.New(store,
			uploader.WithConcurrency(cmd.Int("concurrency")),
			uploader.WithMaxRetries(uint64(cmd.Uint("retries"))),
			uploader.WithRateLimit(cmd.Float64("rate-limit")),
		)),
	)

	if d := cmd.Duration("timeout"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	res, runErr := p.Run(ctx, cmd.String("image"), cmd.String("tag"))
	if res != nil {
		w, wErr := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
		if wErr != nil {
			return wErr
		}
		defer w.Close()
		if sErr := w.Serialize(res); sErr != nil {
			return sErr
		}
	}
	return runErr
}

func buildConverter(cmd *cli.Command) (convert.Converter, error) {
	switch cmd.String("converter") {
	case converterSkopeo:
		s := convert.NewSkopeo()
		s.Binary = cmd.String("skopeo-path")
		if err := s.Available(); err != nil {
			return nil, err
		}
		return s, nil
	case converterRegistry:
		return convert.NewRegistry(), nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown converter: %q", cmd.String("converter")))
	}
}
