package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/config"
	"github.com/Carmen-Shannon/oxy-splat/engine"
	"github.com/Carmen-Shannon/oxy-splat/engine/viewer"
	"github.com/Carmen-Shannon/oxy-splat/engine/window"
)

// view runs the interactive viewer until the window closes.
func view(ctx context.Context, path string, cfg config.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	w, err := window.NewWindow(cfg.WindowOptions()...)
	if err != nil {
		return err
	}
	defer w.Close()

	v, err := viewer.New(ctx, append(cfg.ViewerOptions(), viewer.WithWindow(w, cfg.BackendOptions()...))...)
	if err != nil {
		return err
	}
	defer v.Dispose()

	if err := v.LoadData(data); err != nil {
		return err
	}
	if *densify > 1 {
		if err := v.ComputeSuperResolution(*densify); err != nil {
			return err
		}
	}

	eng, err := engine.NewEngine(w, v,
		engine.WithProfiling(cfg.Renderer.Profiling),
		engine.WithRenderFrameLimit(cfg.Renderer.FrameLimit),
	)
	if err != nil {
		return err
	}
	eng.SetKeyCallback(keyBindings(eng, path, cfg.Viewer.DensifyFactor))

	if cfg.Viewer.Watch {
		stop, err := watchFile(path, func(data []byte) {
			if err := eng.Submit(viewer.Command{Kind: viewer.CommandLoad, Data: data}); err != nil {
				common.Logger().Warn("reload dropped", "error", err)
			}
		})
		if err != nil {
			return err
		}
		defer stop()
	}

	eng.Run()
	return nil
}

// keyBindings maps key presses to viewer commands. Exports are written next to the scene file.
func keyBindings(eng engine.Engine, path string, factor int) func(keyCode uint32) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return func(keyCode uint32) {
		var cmd viewer.Command
		switch keyCode {
		case common.Key1:
			cmd = viewer.Command{Kind: viewer.CommandSetDisplayMode, Mode: viewer.DisplayModeColor}
		case common.Key2:
			cmd = viewer.Command{Kind: viewer.CommandSetDisplayMode, Mode: viewer.DisplayModeNormal}
		case common.KeyS:
			cmd = viewer.Command{Kind: viewer.CommandSuperResolution, Factor: factor}
		case common.KeyE:
			exportTo(eng.Viewer(), base+".export.ply", viewer.ExportFormatPLY)
			return
		case common.KeyP:
			exportTo(eng.Viewer(), base+".export.pcd", viewer.ExportFormatPCD)
			return
		case common.KeyEsc:
			eng.Quit()
			return
		default:
			return
		}
		if err := eng.Submit(cmd); err != nil {
			common.Logger().Warn("key dropped", "command", cmd.Kind, "error", err)
		}
	}
}

func exportTo(v viewer.Viewer, path string, format viewer.ExportFormat) {
	f, err := os.Create(path)
	if err != nil {
		common.Logger().Warn("export failed", "path", path, "error", err)
		return
	}
	err = v.Dispatch(viewer.Command{Kind: viewer.CommandExport, Format: format, Output: f})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		common.Logger().Warn("export failed", "path", path, "error", err)
		os.Remove(path)
		return
	}
	common.Logger().Info("exported", "path", path, "records", v.RecordCount())
}
