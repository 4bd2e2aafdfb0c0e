package generator

import (
	"context"
	"fmt"

	"github.com/k0kubun/go-ansi"
	"github.com/lintang-b-s/mwmrouter/pkg/kv"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RegionWriter stores built regions, mwm.DirSource writes <name>.mwm files.
type RegionWriter interface {
	Write(data *mwm.RegionData) error
}

type Generator struct {
	regions  []RegionSpec
	workers  int
	out      RegionWriter
	index    *kv.KVDB
	logger   *zap.Logger
	progress bool

	minComponentSize int
}

type Option func(*Generator)

// WithWorldIndex also saves every cross section to the world index.
func WithWorldIndex(db *kv.KVDB) Option {
	return func(g *Generator) {
		g.index = db
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithMinComponentSize drops road islands of fewer than n junctions.
func WithMinComponentSize(n int) Option {
	return func(g *Generator) {
		g.minComponentSize = n
	}
}

// WithProgress draws progress bars on stdout.
func WithProgress() Option {
	return func(g *Generator) {
		g.progress = true
	}
}

func NewGenerator(regions []RegionSpec, workers int, out RegionWriter, opts ...Option) *Generator {
	g := &Generator{regions: regions, workers: max(workers, 1), out: out, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) bar(total int, step, description string) *progressbar.ProgressBar {
	if !g.progress {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(ansi.NewAnsiStdout()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][%s][reset] %s ...", step, description)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// Run builds every declared region from the osm data open scans and writes
// them out.
func (g *Generator) Run(ctx context.Context, open ScannerFunc) ([]*mwm.RegionData, error) {
	g.logger.Info("[1/4] reading openstreetmap data")
	network, err := NewOsmParser(g.logger).Parse(ctx, open)
	if err != nil {
		return nil, fmt.Errorf("parse osm: %w", err)
	}
	DropSmallComponents(network, g.minComponentSize, g.logger)

	g.logger.Info("[2/4] splitting road network into regions", zap.Int("regions", len(g.regions)))
	regions, err := Partition(network, g.regions, g.logger)
	if err != nil {
		return nil, err
	}

	withBorders := 0
	for _, r := range regions {
		if len(r.Cross.Borders) > 0 {
			withBorders++
		}
	}
	bar := g.bar(withBorders, "3/4", "computing leaps between border junctions")
	err = ComputeLeapTables(ctx, regions, g.workers, func() { _ = bar.Add(1) })
	_ = bar.Finish()
	if err != nil {
		return nil, err
	}

	if err := g.write(ctx, regions); err != nil {
		return nil, err
	}
	return regions, nil
}

func (g *Generator) write(ctx context.Context, regions []*mwm.RegionData) error {
	bar := g.bar(len(regions), "4/4", "writing region files")
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, data := range regions {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			if err := g.out.Write(data); err != nil {
				return fmt.Errorf("write region %s: %w", data.Cross.Region, err)
			}
			g.logger.Info("region written",
				zap.String("region", data.Cross.Region),
				zap.Int("junctions", len(data.Junctions)),
				zap.Int("edges", len(data.Segments)),
				zap.Int("borders", len(data.Cross.Borders)))
			return bar.Add(1)
		})
	}
	err := eg.Wait()
	_ = bar.Finish()
	if err != nil {
		return err
	}

	if g.index == nil {
		return nil
	}
	sections := make([]*mwm.CrossSection, 0, len(regions))
	for _, data := range regions {
		sections = append(sections, &data.Cross)
	}
	if err := g.index.SaveCrossSections(ctx, sections); err != nil {
		return fmt.Errorf("save world index: %w", err)
	}
	return nil
}
