// Command vtsbench replays a recorded camera path through the engine
// as a soak/benchmark harness: no renderer is attached, it only drives
// the Frame Driver and reports how resource streaming keeps up, with a
// terminal progress bar (SPEC_FULL §11 domain-stack table).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/GrainArc/vtsclient/config"
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

// cameraPathPoint is one sample of a recorded camera path: a physical
// SRS focus position, held for holdFrames frames before advancing.
type cameraPathPoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	HoldFrames int     `json:"holdFrames"`
}

func main() {
	mapConfigPath := flag.String("mapconfig", "", "path to a map-config JSON document")
	pathFile := flag.String("path", "", "path to a recorded camera-path JSON array")
	frames := flag.Int("frames", 600, "total frames to replay when -path is absent")
	flag.Parse()

	if *mapConfigPath == "" {
		fmt.Fprintln(os.Stderr, "usage: vtsbench -mapconfig <file> [-path <file>] [-frames N]")
		os.Exit(2)
	}

	mc, err := config.LoadMapConfig(*mapConfigPath)
	if err != nil {
		config.Logger.Fatalf("load map config: %v", err)
	}

	opts := config.DefaultRuntimeOptions()

	cache := rescache.New(opts.MaxResourcesMemoryMB*1024*1024, 0)
	store := metatile.New(cache)
	sched := fetch.New(cache, nil, decode.RawPassthrough, nil, fetch.Options{
		MaxConcurrentDownloads: opts.MaxConcurrentDownloads,
		MaxRetries:             opts.MaxFetchRetries,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	layer := &model.MapLayer{
		Name:         "default",
		SurfaceStack: model.SurfaceStack{Surfaces: mc.Surfaces},
	}

	travCtx := &traverse.Context{Cache: cache, MetaStore: store}
	driver := frame.New(travCtx)
	driver.AddLayer(traverse.NewRoot(layer), strategy.Hierarchical, strategy.Options{})

	path := loadPath(*pathFile, *frames)

	bar := pb.StartNew(len(path))
	defer bar.Finish()

	viewProj := geom.Identity4()
	for _, p := range path {
		focus := geom.V3(p.X, p.Y, p.Z)
		hold := p.HoldFrames
		if hold <= 0 {
			hold = 1
		}
		for i := 0; i < hold; i++ {
			sched.Enqueue()
			out := driver.Tick(viewProj, focus)
			_ = out // benchmark-only: draw lists aren't rendered anywhere
		}
		bar.Increment()
		time.Sleep(time.Millisecond) // let the data thread make progress between samples
	}

	ram, gpu := cache.MemoryUsage()
	fmt.Printf("\ncache: %d resources, %d MB ram, %d MB gpu\n", cache.Size(), ram/1024/1024, gpu/1024/1024)
}

// loadPath reads a recorded path from pathFile, or synthesises a
// static n-frame hold at the origin when pathFile is empty.
func loadPath(pathFile string, n int) []cameraPathPoint {
	if pathFile == "" {
		return []cameraPathPoint{{X: 0, Y: 0, Z: 0, HoldFrames: n}}
	}
	f, err := os.Open(pathFile)
	if err != nil {
		config.Logger.Fatalf("open camera path: %v", err)
	}
	defer f.Close()

	var path []cameraPathPoint
	if err := json.NewDecoder(f).Decode(&path); err != nil {
		config.Logger.Fatalf("decode camera path: %v", err)
	}
	return path
}
