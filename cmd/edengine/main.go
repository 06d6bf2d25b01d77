// Command edengine renders a YAML scene with the deferred renderer, either in a window or
// headless for a fixed number of frames.
//
// Usage:
//
//	edengine -scene scene.yaml [-config edengine.toml] [-headless -frames N] [-dump out.png -target Viewport]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine"
	"github.com/KlishchD/EdEngine-sub000/engine/asset"
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/config"
	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/profiler"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/rendering"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
	"github.com/KlishchD/EdEngine-sub000/engine/scene"
	"github.com/KlishchD/EdEngine-sub000/engine/window"
)

type options struct {
	configPath string
	scenePath  string
	headless   bool
	frames     uint64
	dumpPath   string
	dumpTarget target.RenderTarget
}

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "edengine:", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("edengine", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "TOML configuration file")
	fs.StringVar(&opts.scenePath, "scene", "", "YAML scene description (required)")
	fs.BoolVar(&opts.headless, "headless", false, "render without opening a window")
	fs.Uint64Var(&opts.frames, "frames", 0, "stop after this many frames; headless runs default to 1")
	fs.StringVar(&opts.dumpPath, "dump", "", "write a render target to this .png, .jpg or .bmp file before exiting")
	targetName := fs.String("target", target.Viewport.String(), "render target written by -dump")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.scenePath == "" {
		return opts, errors.New("-scene is required")
	}
	t, err := target.Parse(*targetName)
	if err != nil {
		return opts, err
	}
	opts.dumpTarget = t
	if opts.headless && opts.frames == 0 {
		opts.frames = 1
	}
	return opts, nil
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(args []string, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	logger.SetLogger(logger.New(stderr, cfg.Log.Level, cfg.Log.JSON))
	defer logger.SetLogger(nil)

	var win window.Window
	size := common.Size{Width: cfg.Window.Width, Height: cfg.Window.Height}
	if !opts.headless {
		win, err = window.NewWindow(window.WithConfig(cfg.Window))
		if err != nil {
			return err
		}
		defer win.Close()
		size = win.Size()
	}

	dev, err := newDevice(cfg, win)
	if err != nil {
		return err
	}
	defer dev.Release()

	library := programs.NewLibrary(programs.WithDirectory(cfg.Shaders.Directory))
	ctx := rendering.NewContext(dev, library)
	assets := asset.NewManager(ctx, asset.WithRoot(filepath.Dir(opts.scenePath)))
	defer assets.ReleaseAll()

	s, err := scene.Load(opts.scenePath, assets)
	if err != nil {
		return err
	}

	prof := profiler.NewProfiler()
	r, err := renderer.NewRenderer(ctx, assets,
		renderer.WithSettings(cfg.Renderer),
		renderer.WithSize(size),
		renderer.WithShaderLibrary(library),
		renderer.WithProfiler(prof),
	)
	if err != nil {
		return err
	}
	defer r.Release()

	if cfg.Shaders.HotReload && cfg.Shaders.Directory != "" {
		stop, err := r.WatchShaders(cfg.Shaders.Directory)
		if err != nil {
			return err
		}
		defer stop()
	}
	if win != nil && s.Camera().Controller() == nil {
		s.Camera().SetController(camera.NewOrbitControllerFor(s.Camera()))
	}

	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithScene(0, s),
		engine.WithFrameBudget(opts.frames),
		engine.WithCameraControls(win != nil),
		engine.WithProfiling(logger.ParseLevel(cfg.Log.Level) <= slog.LevelDebug),
	)
	if err := eng.Run(); err != nil {
		return err
	}

	for _, t := range r.Timings() {
		logger.Logger().Info("task timing", "task", t.Name, "average", t.Average, "samples", t.Samples)
	}
	if opts.dumpPath != "" {
		if err := r.DumpRenderTarget(opts.dumpTarget, opts.dumpPath); err != nil {
			return err
		}
		logger.Logger().Info("render target written", "target", opts.dumpTarget.String(), "path", opts.dumpPath)
	}
	return nil
}
