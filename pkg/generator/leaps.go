package generator

import (
	"context"
	"fmt"

	"github.com/lintang-b-s/mwmrouter/pkg/concurrent"
	"github.com/lintang-b-s/mwmrouter/pkg/datastructure"
	"github.com/lintang-b-s/mwmrouter/pkg/mwm"
	"github.com/lintang-b-s/mwmrouter/pkg/regiongraph"
	"github.com/lintang-b-s/mwmrouter/pkg/transition"
	"github.com/lintang-b-s/mwmrouter/pkg/vehicle"
)

type leapJob struct {
	ctx   context.Context
	index int
	data  *mwm.RegionData
}

type leapResult struct {
	index  int
	tables []mwm.LeapTable
	err    error
}

// computeRegionLeaps returns the leap tables of one region for the default
// profile (fastest, no avoid options) of every vehicle type.
func computeRegionLeaps(job leapJob) leapResult {
	res := leapResult{index: job.index}
	view, err := regiongraph.Build(datastructure.RegionID(job.index), mwm.NewRegionReader(job.data))
	if err != nil {
		res.err = fmt.Errorf("build region %s: %w", job.data.Cross.Region, err)
		return res
	}
	for _, v := range datastructure.AllVehicleTypes() {
		p := vehicle.MustProfile(v, datastructure.RouteOptions{})
		leaps, err := transition.ComputeLeaps(job.ctx, view, p)
		if err != nil {
			res.err = fmt.Errorf("leaps of %s for %s: %w", job.data.Cross.Region, v, err)
			return res
		}
		res.tables = append(res.tables, mwm.LeapTable{Profile: p.Key().String(), Leaps: leaps})
	}
	return res
}

// ComputeLeapTables stores precomputed leaps in the cross section of every
// region that has border junctions. done is called once per finished region.
func ComputeLeapTables(ctx context.Context, regions []*mwm.RegionData, workers int, done func()) error {
	jobs := 0
	for _, data := range regions {
		if len(data.Cross.Borders) > 0 {
			jobs++
		}
	}
	pool := concurrent.NewWorkerPool[leapJob, leapResult](workers, jobs)
	for i, data := range regions {
		if len(data.Cross.Borders) == 0 {
			continue
		}
		pool.AddJob(leapJob{ctx: ctx, index: i, data: data})
	}
	pool.Close()
	pool.Start(func(job leapJob) leapResult {
		res := computeRegionLeaps(job)
		if done != nil {
			done()
		}
		return res
	})
	pool.Wait()

	var firstErr error
	for res := range pool.CollectResults() {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		for _, t := range res.tables {
			regions[res.index].Cross.SetLeapTable(t.Profile, t.Leaps)
		}
	}
	return firstErr
}
