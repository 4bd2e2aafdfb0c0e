package mwm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lintang-b-s/mwmrouter/pkg/storage"
)

// Source opens regions by name.
type Source interface {
	Open(ctx context.Context, name string) (RegionReader, error)
	OpenCrossSection(ctx context.Context, name string) (*CrossSection, error)
	Exists(name string) bool
	List() ([]string, error)
}

// DirSource serves <dir>/<name>.mwm files.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) Path(name string) string {
	return filepath.Join(s.dir, name+storage.REGION_FILE_EXT)
}

func (s *DirSource) Open(ctx context.Context, name string) (RegionReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := ReadFile(s.Path(name))
	if err != nil {
		return nil, err
	}
	return NewRegionReader(data), nil
}

func (s *DirSource) OpenCrossSection(ctx context.Context, name string) (*CrossSection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadCrossSectionFile(s.Path(name))
}

func (s *DirSource) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

func (s *DirSource) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), storage.REGION_FILE_EXT) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), storage.REGION_FILE_EXT))
	}
	sort.Strings(names)
	return names, nil
}

// Write stores data as <dir>/<name>.mwm.
func (s *DirSource) Write(data *RegionData) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	return WriteFile(s.Path(data.Cross.Region), data)
}

func (s *DirSource) Delete(name string) error {
	return os.Remove(s.Path(name))
}

// MemorySource keeps decoded regions in memory. Regions can be added and
// removed at any time, which stands in for downloads and deletions.
type MemorySource struct {
	mu      sync.RWMutex
	regions map[string]*RegionData
}

func NewMemorySource(regions ...*RegionData) *MemorySource {
	s := &MemorySource{regions: make(map[string]*RegionData)}
	for _, r := range regions {
		s.Put(r)
	}
	return s
}

func (s *MemorySource) Put(data *RegionData) {
	data.Normalize()
	s.mu.Lock()
	s.regions[data.Cross.Region] = data
	s.mu.Unlock()
}

func (s *MemorySource) Delete(name string) {
	s.mu.Lock()
	delete(s.regions, name)
	s.mu.Unlock()
}

func (s *MemorySource) get(name string) (*RegionData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.regions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRegionFileNotFound, name)
	}
	return data, nil
}

func (s *MemorySource) Open(ctx context.Context, name string) (RegionReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.get(name)
	if err != nil {
		return nil, err
	}
	return NewRegionReader(data), nil
}

func (s *MemorySource) OpenCrossSection(ctx context.Context, name string) (*CrossSection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := s.get(name)
	if err != nil {
		return nil, err
	}
	cross := data.Cross
	return &cross, nil
}

func (s *MemorySource) Exists(name string) bool {
	_, err := s.get(name)
	return err == nil
}

func (s *MemorySource) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.regions))
	for name := range s.regions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
