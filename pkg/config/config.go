package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string `yaml:"log_level"`
	// DataDir holds the <region>.mwm files.
	DataDir string `yaml:"data_dir"`
	// WorldIndex is the badger directory of cross sections. Empty disables
	// the index.
	WorldIndex string          `yaml:"world_index"`
	Server     ServerConfig    `yaml:"server"`
	Router     RouterConfig    `yaml:"router"`
	Service    ServiceConfig   `yaml:"service"`
	Generator  GeneratorConfig `yaml:"generator"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	// SwaggerURL is where the swagger UI fetches doc.json.
	SwaggerURL string `yaml:"swagger_url"`
}

type RouterConfig struct {
	SnapRadiusM         float64 `yaml:"snap_radius_m"`
	AttachToleranceM    float64 `yaml:"attach_tolerance_m"`
	MaxRoadCandidates   int     `yaml:"max_road_candidates"`
	ResidentLimit       int     `yaml:"resident_limit"`
	LongRouteThresholdM float64 `yaml:"long_route_threshold_m"`
	RefineTolerance     float64 `yaml:"refine_tolerance"`
}

type ServiceConfig struct {
	Workers        int  `yaml:"workers"`
	CacheSize      int  `yaml:"cache_size"`
	CoordPrecision uint `yaml:"coord_precision"`
}

type GeneratorConfig struct {
	// Regions are matched in order, an edge belongs to the first region
	// holding its start junction.
	Regions []RegionBounds `yaml:"regions"`
	Workers int            `yaml:"workers"`

	// MinComponentSize drops strongly connected road components with fewer
	// junctions, 0 keeps all of them.
	MinComponentSize int `yaml:"min_component_size"`
}

type RegionBounds struct {
	Name   string  `yaml:"name"`
	MinLat float64 `yaml:"min_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLat float64 `yaml:"max_lat"`
	MaxLon float64 `yaml:"max_lon"`
}

func (r RegionBounds) Rect() datastructure.Rect {
	return datastructure.NewRect(r.MinLat, r.MinLon, r.MaxLat, r.MaxLon)
}

func Default() Config {
	return Config{
		LogLevel:   "info",
		DataDir:    "./data/regions",
		WorldIndex: "./data/world_index",
		Server: ServerConfig{
			ListenAddr: ":5000",
			SwaggerURL: "http://localhost:5000/swagger/doc.json",
		},
		Router: RouterConfig{
			SnapRadiusM:         500,
			AttachToleranceM:    30,
			MaxRoadCandidates:   10,
			ResidentLimit:       16,
			LongRouteThresholdM: 300_000,
			RefineTolerance:     0.05,
		},
		Service: ServiceConfig{
			Workers:        8,
			CacheSize:      1024,
			CoordPrecision: 5,
		},
		Generator: GeneratorConfig{
			Workers:          4,
			MinComponentSize: 50,
		},
	}
}

// Load overlays the YAML file at path on Default and validates the result.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v float64) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}
	positive("router.snap_radius_m", c.Router.SnapRadiusM)
	positive("router.max_road_candidates", float64(c.Router.MaxRoadCandidates))
	positive("router.long_route_threshold_m", c.Router.LongRouteThresholdM)
	positive("service.workers", float64(c.Service.Workers))
	positive("generator.workers", float64(c.Generator.Workers))
	if c.Router.AttachToleranceM < 0 {
		errs = append(errs, fmt.Errorf("router.attach_tolerance_m must not be negative"))
	}
	if c.Router.RefineTolerance < 0 {
		errs = append(errs, fmt.Errorf("router.refine_tolerance must not be negative"))
	}
	if c.Generator.MinComponentSize < 0 {
		errs = append(errs, fmt.Errorf("generator.min_component_size must not be negative"))
	}
	if c.Router.ResidentLimit < 0 || c.Service.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("router.resident_limit and service.cache_size must not be negative"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is required"))
	}

	seen := make(map[string]bool, len(c.Generator.Regions))
	for _, r := range c.Generator.Regions {
		switch {
		case r.Name == "":
			errs = append(errs, errors.New("generator region without name"))
		case seen[r.Name]:
			errs = append(errs, fmt.Errorf("generator region %s declared twice", r.Name))
		case r.MinLat >= r.MaxLat || r.MinLon >= r.MaxLon:
			errs = append(errs, fmt.Errorf("generator region %s has an empty bounding box", r.Name))
		}
		seen[r.Name] = true
	}
	return errors.Join(errs...)
}
