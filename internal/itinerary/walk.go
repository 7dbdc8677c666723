package itinerary

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"campus-shuttle/internal/geo"
	"campus-shuttle/internal/routing"
)

// WalkFetcher returns the walking path between two coordinates.
type WalkFetcher interface {
	Walk(ctx context.Context, from, to geo.Coordinate) (geo.Path, error)
}

// WalkHop is a walk step of a directions result.
type WalkHop struct {
	Step int
	From geo.Coordinate
	To   geo.Coordinate
}

// WalkResult pairs a hop with its fetched path or the fetch error.
type WalkResult struct {
	Hop  WalkHop
	Path geo.Path
	Err  error
}

// WalkHops lists walk steps that carry both end points.
func WalkHops(steps []routing.Step) []WalkHop {
	var hops []WalkHop
	for i, s := range steps {
		if s.Type != routing.StepWalk || s.From == nil || s.To == nil {
			continue
		}
		hops = append(hops, WalkHop{Step: i, From: *s.From, To: *s.To})
	}
	return hops
}

// FetchWalks fetches every hop concurrently. Results are returned in hop
// order regardless of completion order; a failed hop has Err set and does
// not affect the others.
func FetchWalks(ctx context.Context, f WalkFetcher, hops []WalkHop, maxConcurrent int) []WalkResult {
	results := make([]WalkResult, len(hops))
	if len(hops) == 0 {
		return results
	}
	p := pool.New()
	if maxConcurrent > 0 {
		p = p.WithMaxGoroutines(maxConcurrent)
	}
	for i, hop := range hops {
		p.Go(func() {
			path, err := f.Walk(ctx, hop.From, hop.To)
			results[i] = WalkResult{Hop: hop, Path: path, Err: err}
		})
	}
	p.Wait()
	return results
}

// WalkSegments renders successful walk results; failed or empty hops are omitted.
// legOffset numbers walk segments after the bus legs.
func WalkSegments(results []WalkResult, legOffset int) []RenderSegment {
	var out []RenderSegment
	for i, r := range results {
		if r.Err != nil || len(r.Path) == 0 {
			continue
		}
		out = append(out, RenderSegment{
			Coordinates: r.Path,
			Color:       WalkColor,
			Kind:        KindWalk,
			Leg:         legOffset + i,
		})
	}
	return out
}
