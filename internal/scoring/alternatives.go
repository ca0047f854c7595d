package scoring

import (
	"github.com/ecodrive/ecodrive/internal/geo"
	"github.com/ecodrive/ecodrive/internal/routing"
)

// defaultOffsetDegrees is the interior-point perturbation applied when
// synthesizing alternatives, roughly 1.3km of latitude.
const defaultOffsetDegrees = 0.012

// AlternativeProvider expands a candidate set into the set presented for
// comparison. The synthesized flag reports whether the extra candidates
// were fabricated rather than returned by the routing service.
type AlternativeProvider interface {
	Expand(candidates []routing.Candidate) (expanded []routing.Candidate, synthesized bool)
}

// ChooseAlternatives selects the expansion strategy for one request: real
// multi-route responses pass through untouched; a single-route response
// falls back to synthesis so the comparison UI always has something to
// compare.
func ChooseAlternatives(candidates []routing.Candidate) AlternativeProvider {
	if len(candidates) == 1 {
		return SyntheticAlternatives{OffsetDegrees: defaultOffsetDegrees}
	}
	return PassthroughAlternatives{}
}

// PassthroughAlternatives returns genuine multi-route responses unchanged.
type PassthroughAlternatives struct{}

// Expand returns the candidates as-is.
func (PassthroughAlternatives) Expand(candidates []routing.Candidate) ([]routing.Candidate, bool) {
	return candidates, false
}

// SyntheticAlternatives fabricates two plausible variants of a single
// canonical route by perturbing its interior geometry. Endpoints stay
// pinned to the resolved start and end.
type SyntheticAlternatives struct {
	OffsetDegrees float64
}

// Expand returns the canonical route plus a "northeast" variant (slightly
// longer and slower) and a "southwest" variant (slightly shorter and
// faster).
func (s SyntheticAlternatives) Expand(candidates []routing.Candidate) ([]routing.Candidate, bool) {
	offset := s.OffsetDegrees
	if offset == 0 {
		offset = defaultOffsetDegrees
	}

	base := candidates[0]
	out := make([]routing.Candidate, 0, 3)
	out = append(out, base)

	northeast := perturb(base, 1, offset)
	northeast.DurationSeconds *= 1.15
	northeast.DistanceMeters *= 1.10
	out = append(out, northeast)

	southwest := perturb(base, 2, -offset)
	southwest.DurationSeconds *= 0.95
	southwest.DistanceMeters *= 0.98
	out = append(out, southwest)

	return out, true
}

// perturb copies the base candidate with its interior points shifted by the
// offset in both axes. The first and last point are left untouched.
func perturb(base routing.Candidate, id int, offset float64) routing.Candidate {
	geometry := make([]geo.Coordinate, len(base.Geometry))
	copy(geometry, base.Geometry)

	for i := 1; i < len(geometry)-1; i++ {
		geometry[i].Lat += offset
		geometry[i].Lon += offset
	}

	out := base
	out.ID = id
	out.Geometry = geometry
	return out
}
