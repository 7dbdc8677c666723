package geo

import "math"

// NearestIndex returns the index of the path point closest to c. Ties resolve
// to the lowest index. Returns -1 for an empty path.
func NearestIndex(p Path, c Coordinate) int {
	best := -1
	bestDist := math.MaxFloat64
	for i, pt := range p {
		d := Haversine(pt, c)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// ExtractDirectedSegment returns the part of geometry between the points
// nearest to start and end, oriented from start to end. It returns nil for an
// empty geometry or when an endpoint matches no point (NaN coordinates). A
// result with fewer than two points is returned as-is.
//
// Orientation is first guessed from the index order and then corrected by
// comparing the distance from start to either end of the slice.
func ExtractDirectedSegment(geometry Path, start, end Coordinate) Path {
	if len(geometry) == 0 {
		return nil
	}
	si := NearestIndex(geometry, start)
	ei := NearestIndex(geometry, end)
	if si < 0 || ei < 0 {
		return nil
	}

	var seg Path
	if si < ei {
		seg = clonePath(geometry[si : ei+1])
	} else {
		lo, hi := ei, si
		seg = clonePath(geometry[lo : hi+1])
		if si > ei {
			seg = seg.Reversed()
		}
	}

	if len(seg) >= 2 && Haversine(start, seg.Last()) < Haversine(start, seg.First()) {
		seg = seg.Reversed()
	}
	return seg
}

// SplitLoop cuts a loop path at the point nearest terminus. Both halves share
// that coordinate, so first followed by second[1:] reproduces p. When no point
// matches terminus the whole path is returned as first.
func SplitLoop(p Path, terminus Coordinate) (first, second Path) {
	if len(p) == 0 {
		return nil, nil
	}
	i := NearestIndex(p, terminus)
	if i < 0 {
		return clonePath(p), nil
	}
	return clonePath(p[:i+1]), clonePath(p[i:])
}

func clonePath(p Path) Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}
