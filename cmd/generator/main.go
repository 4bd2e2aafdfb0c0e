package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/lintang-b-s/mwmrouter/pkg/config"
	"github.com/lintang-b-s/mwmrouter/pkg/generator"
	"github.com/lintang-b-s/mwmrouter/pkg/kv"
	"github.com/lintang-b-s/mwmrouter/pkg/logger"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "", "yaml config file with the generator regions")
	mapFile    = flag.String("f", "solo_jogja.osm.pbf", "openstreetmap pbf file to cut regions from")
	outDir     = flag.String("out", "", "directory for the region files, overrides data_dir")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()

		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}
	if *outDir != "" {
		cfg.DataDir = *outDir
	}
	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	if len(cfg.Generator.Regions) == 0 {
		lg.Fatal("no regions declared, add generator.regions to the config")
	}
	specs := make([]generator.RegionSpec, 0, len(cfg.Generator.Regions))
	for _, r := range cfg.Generator.Regions {
		specs = append(specs, generator.RegionSpec{Name: r.Name, Bounds: r.Rect()})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	opts := []generator.Option{
		generator.WithLogger(lg),
		generator.WithProgress(),
		generator.WithMinComponentSize(cfg.Generator.MinComponentSize),
	}
	if cfg.WorldIndex != "" {
		index, err := kv.Open(cfg.WorldIndex, lg)
		if err != nil {
			lg.Fatal("open world index", zap.Error(err))
		}
		defer index.Close()
		opts = append(opts, generator.WithWorldIndex(index))
	}

	lg.Info("reading osm file", zap.String("file", *mapFile), zap.String("out", cfg.DataDir))
	g := generator.NewGenerator(specs, cfg.Generator.Workers, mwm.NewDirSource(cfg.DataDir), opts...)
	regions, err := g.Run(ctx, generator.PBFFile(*mapFile))
	if err != nil {
		lg.Error("generating regions failed", zap.Error(err))
		return
	}
	lg.Info("regions generated", zap.Int("regions", len(regions)))
}
