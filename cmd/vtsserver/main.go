// Command vtsserver is the engine's long-running service entry point:
// it loads a map-config document, starts the fetch scheduler's data
// thread, drives the frame loop on a fixed tick, and exposes the
// control API (spec §10) over HTTP for external renderers and debug
// tooling to attach to.
//
// Grounded on the teacher's cmd-less service wiring (routers.GeoRouters
// registered onto a bare gin.Default() engine) generalized into an
// explicit main that also owns the scheduler goroutine and frame loop.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GrainArc/vtsclient/config"
	"github.com/GrainArc/vtsclient/control"
	"github.com/GrainArc/vtsclient/decode"
	"github.com/GrainArc/vtsclient/fetch"
	"github.com/GrainArc/vtsclient/frame"
	"github.com/GrainArc/vtsclient/geom"
	"github.com/GrainArc/vtsclient/metatile"
	"github.com/GrainArc/vtsclient/model"
	"github.com/GrainArc/vtsclient/rescache"
	"github.com/GrainArc/vtsclient/strategy"
	"github.com/GrainArc/vtsclient/traverse"
)

func main() {
	optsFile := flag.String("config", "", "path to a runtime options file (viper-loaded)")
	addr := flag.String("addr", ":8080", "control API listen address")
	dbPath := flag.String("db", "vtsclient.db", "directory holding the sqlite store for bookmarks/session stats")
	flag.Parse()

	opts, err := config.LoadRuntimeOptions(*optsFile)
	if err != nil {
		config.Logger.Fatalf("load runtime options: %v", err)
	}

	if err := config.InitDatabase(*dbPath); err != nil {
		config.Logger.Fatalf("init database: %v", err)
	}

	cache := rescache.New(opts.MaxResourcesMemoryMB*1024*1024, opts.MaxGpuMemoryMB*1024*1024)
	store := metatile.New(cache)
	sched := fetch.New(cache, nil, decode.RawPassthrough, nil, fetch.Options{
		MaxConcurrentDownloads: opts.MaxConcurrentDownloads,
		MaxRetries:             opts.MaxFetchRetries,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	travCtx := &traverse.Context{
		Cache:                          cache,
		MetaStore:                      store,
		DebugDisableMeta5:              opts.DebugDisableMeta5,
		NavigationSamplesPerViewExtent: opts.NavigationSamplesPerViewExtent,
		MaxTexelToPixelScale:           opts.MaxTexelToPixelScale,
		MaxLodDiff:                     opts.MaxLodDiff,
	}
	driver := frame.New(travCtx)

	strategyOpts := strategy.Options{
		FixedTraversalLod:      opts.FixedTraversalLod,
		FixedTraversalDistance: opts.FixedTraversalDistance,
	}

	loadLayer := func() error {
		mc, err := config.LoadMapConfig(opts.MapConfigURL)
		if err != nil {
			return err
		}
		layer := &model.MapLayer{
			Name:         "default",
			SurfaceStack: model.SurfaceStack{Surfaces: mc.Surfaces},
			BoundLayers:  mc.BoundLayers,
		}
		for _, v := range mc.Views {
			layer.View = v
			break
		}
		driver.Layers = nil
		driver.AddLayer(traverse.NewRoot(layer), parseMode(opts.TraverseModeSurfaces), strategyOpts)
		for _, fl := range mc.FreeLayers {
			if !fl.IsGeodata {
				continue
			}
			geoLayer := &model.MapLayer{Name: fl.Name, FreeLayer: fl, SurfaceStack: model.SurfaceStack{Surfaces: mc.Surfaces}}
			driver.AddLayer(traverse.NewRoot(geoLayer), parseMode(opts.TraverseModeGeodata), strategyOpts)
		}
		cache.Purge()
		return nil
	}
	if opts.MapConfigURL != "" {
		if err := loadLayer(); err != nil {
			config.Logger.Fatalf("load map config: %v", err)
		}
	}

	ctrl := control.New(cache, loadLayer)

	go runFrameLoop(ctx, driver, ctrl)
	if opts.MapConfigPollInterval > 0 && opts.MapConfigURL != "" {
		go pollMapConfig(ctx, opts.MapConfigPollInterval, loadLayer)
	}

	r := gin.Default()
	ctrl.Register(r)

	srv := make(chan error, 1)
	go func() { srv <- r.Run(*addr) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-srv:
		config.Logger.Fatalf("http server: %v", err)
	case <-stop:
		config.Logger.Print("shutting down")
	}
}

// parseMode maps a config.RuntimeOptions traversal-mode name (spec §6)
// onto a strategy.Mode, defaulting to Hierarchical for an unrecognized
// or empty name rather than falling silently into strategy.None.
func parseMode(name string) strategy.Mode {
	switch name {
	case "flat":
		return strategy.Flat
	case "hierarchical":
		return strategy.Hierarchical
	case "stable":
		return strategy.Stable
	case "balanced":
		return strategy.Balanced
	case "fixed":
		return strategy.Fixed
	case "distanceBaseFixed":
		return strategy.DistanceBaseFixed
	case "none":
		return strategy.None
	default:
		return strategy.Hierarchical
	}
}

// runFrameLoop ticks the Frame Driver at a fixed cadence, standing in
// for a real renderer's vsync-driven loop, and publishes each frame's
// Statistics to any attached control-API websocket clients.
func runFrameLoop(ctx context.Context, driver *frame.Driver, ctrl *control.Server) {
	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()
	viewProj := geom.Identity4()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			out := driver.Tick(viewProj, geom.Vec3{})
			ctrl.PublishFrame(out.Stats)
		}
	}
}

// pollMapConfig re-fetches the map-config document on an interval,
// supporting servers whose surface tree changes without a restart.
func pollMapConfig(ctx context.Context, interval time.Duration, reload func() error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := reload(); err != nil {
				config.Logger.Printf("map config poll: %v", err)
			}
		}
	}
}
