// Command oxy-frame opens a window and renders a textured, orbiting cube through the
// frame-synchronized renderer.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-frame/engine"
	"github.com/Carmen-Shannon/oxy-frame/engine/camera"
	"github.com/Carmen-Shannon/oxy-frame/engine/config"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver/wgpudriver"
	"github.com/Carmen-Shannon/oxy-frame/engine/window"
	"github.com/chewxy/math32"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()
	renderer.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	win := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)

	cam := camera.NewCamera(
		camera.WithFov(cfg.Camera.FOV*math32.Pi/180),
		camera.WithNear(cfg.Camera.Near),
		camera.WithFar(cfg.Camera.Far),
		camera.WithController(camera.NewOrbitController(camera.WithRadius(cfg.Camera.Radius))),
	)

	r := renderer.NewRenderer(
		wgpudriver.New(win.SurfaceDescriptor(), win.Size),
		renderer.WithVSync(cfg.Renderer.VSync),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.SoftwareRenderer),
		renderer.WithOverlay(cfg.Renderer.Overlay),
		renderer.WithCamera(cam),
	)
	if !r.ValidateAndCreateObjects() {
		r.Close()
		if err := win.Close(); err != nil {
			renderer.Logger().Warn("window close failed", "error", err)
		}
		return errors.New("Failed to create renderer")
	}

	eng := engine.NewEngine(r,
		engine.WithWindow(win),
		engine.WithCamera(cam),
		engine.WithTickRate(cfg.Engine.TickRate),
		engine.WithProfiling(cfg.Engine.Profiling),
		engine.WithRenderFrameLimit(cfg.Engine.FrameLimit),
	)
	eng.Run()
	return nil
}

// parseConfig loads the config file named by -config and applies the flags that were
// set explicitly on top of it.
func parseConfig(args []string) (config.Config, error) {
	fs := flag.NewFlagSet("oxy-frame", flag.ContinueOnError)
	path := fs.String("config", "", "path to a .toml or .yaml config file")
	vsync := fs.Bool("vsync", true, "present with vertical sync")
	software := fs.Bool("software", false, "force the software adapter")
	overlay := fs.Bool("overlay", false, "draw the 2-D overlay")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "vsync":
			cfg.Renderer.VSync = *vsync
		case "software":
			cfg.Renderer.SoftwareRenderer = *software
		case "overlay":
			cfg.Renderer.Overlay = *overlay
		}
	})
	return cfg, nil
}
