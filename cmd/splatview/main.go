// Command splatview opens a gaussian splat scene in a window, or converts it headlessly.
//
// Usage:
//
//	splatview [options] <scene.ply>
//
// Examples:
//
//	splatview scene.ply                          # Interactive viewer
//	splatview -watch scene.ply                   # Reload on every save
//	splatview -densify 4 -export out.ply in.ply  # Headless densify and convert
//	splatview -pcd out.pcd scene.ply             # Headless point cloud export
//
// Keys: 1 color mode, 2 normal mode, S densify, E export PLY, P export PCD, Esc quit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/config"
)

var (
	configPath = flag.String("config", "", "TOML config file")
	watch      = flag.Bool("watch", false, "reload the scene when the file changes")
	exportPath = flag.String("export", "", "write the scene as PLY and exit")
	pcdPath    = flag.String("pcd", "", "write the scene as PCD and exit")
	densify    = flag.Int("densify", 0, "densification factor applied after loading (0 = none)")
	seed       = flag.Uint("seed", 0, "densification seed")
	ascii      = flag.Bool("ascii", false, "write PLY exports as text")
	mode       = flag.String("mode", "", "display mode: color or normal")
	workers    = flag.Int("workers", 0, "codec worker count (0 or 1 = inline)")
	software   = flag.Bool("software", false, "force a software adapter")
	profile    = flag.Bool("profile", false, "log frame statistics")
	logLevel   = flag.String("log-level", "", "debug, info, warn or error")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Error: expected exactly one scene file")
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	level, _ := cfg.LogLevel()
	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *exportPath != "" || *pcdPath != "" {
		err = convert(args[0], cfg, convertOptions{
			plyPath: *exportPath,
			pcdPath: *pcdPath,
			factor:  *densify,
			seed:    uint32(*seed),
		})
	} else {
		err = view(context.Background(), args[0], cfg)
	}
	if err != nil {
		common.Logger().Error("splatview failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads -config over the defaults, then applies the flags that were set.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return config.Config{}, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "watch":
			cfg.Viewer.Watch = *watch
		case "ascii":
			cfg.Export.ASCII = *ascii
		case "mode":
			cfg.Viewer.DisplayMode = *mode
		case "workers":
			cfg.Viewer.Workers = *workers
		case "software":
			cfg.Renderer.Software = *software
		case "profile":
			cfg.Renderer.Profiling = *profile
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	return cfg, cfg.Validate()
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: splatview [options] <scene.ply>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nKeys:\n")
	fmt.Fprintf(os.Stderr, "  1 color  2 normal  S densify  E export PLY  P export PCD  Esc quit\n")
}
