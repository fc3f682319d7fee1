package main

import (
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/config"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
)

type convertOptions struct {
	plyPath string
	pcdPath string
	factor  int
	seed    uint32
}

// convert decodes the scene at path, densifies it on the CPU and writes the requested exports.
// No graphics device is acquired.
func convert(path string, cfg config.Config, opts convertOptions) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	codec := splat.NewCodec(cfg.CodecOptions()...)
	defer codec.Close()

	t, err := codec.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if opts.factor > 1 {
		if t, err = splat.Densify(t, opts.factor, opts.seed); err != nil {
			return err
		}
	}

	if opts.plyPath != "" {
		if err := writeExport(opts.plyPath, t, codec.EncodePLY); err != nil {
			return err
		}
	}
	if opts.pcdPath != "" {
		if err := writeExport(opts.pcdPath, t, codec.EncodePCD); err != nil {
			return err
		}
	}
	return nil
}

func writeExport(path string, t *splat.Table, encode func(*splat.Table) ([]byte, error)) error {
	out, err := encode(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return err
	}
	common.Logger().Info("exported", "path", path, "records", t.Len(), "bytes", len(out))
	return nil
}
