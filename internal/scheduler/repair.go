package scheduler

import (
	"context"
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// repair places a stuck unit, first directly and otherwise by swapping: the
// placements occupying a start coordinate are evicted, u takes the coordinate
// and each evicted unit is re-placed elsewhere. The first swap that re-places
// every evicted unit wins. A trial counts against budget once the eviction
// has been made, whether or not u then fits.
func (r *run) repair(ctx context.Context, u *DemandUnit, budget int) bool {
	if r.placeBest(u) {
		return true
	}
	attempts := 0
	for _, start := range r.coords {
		blockers := r.blockersAt(u, start)
		if len(blockers) == 0 {
			continue
		}
		if attempts >= budget || ctx.Err() != nil {
			return false
		}
		attempts++
		if r.trySwap(u, start, blockers) {
			r.evictions += len(blockers)
			return true
		}
	}
	return false
}

// trySwap leaves the grid unchanged when it returns false.
func (r *run) trySwap(u *DemandUnit, start models.Coordinate, blockers []*placement) bool {
	for _, b := range blockers {
		r.state.remove(b)
	}
	restore := func(placed []*placement) {
		for _, p := range placed {
			r.state.remove(p)
		}
		for _, b := range blockers {
			r.state.add(b)
		}
	}

	cand, ok := r.feasible(u, start)
	if !ok {
		restore(nil)
		return false
	}
	target := &placement{unit: u, coords: cand.coords, room: cand.room}
	r.state.add(target)
	placed := []*placement{target}
	for _, b := range blockers {
		moved, ok := r.best(b.unit)
		if !ok {
			restore(placed)
			return false
		}
		p := &placement{unit: b.unit, coords: moved.coords, room: moved.room}
		r.state.add(p)
		placed = append(placed, p)
	}
	return true
}

// blockersAt lists placements occupying the class, teacher or lab cells u would
// need at start, most constrained first so they are re-placed in priority order.
func (r *run) blockersAt(u *DemandUnit, start models.Coordinate) []*placement {
	coords := []models.Coordinate{start}
	if u.Span == 2 {
		next, ok := r.cal.NextAdjacentTeaching(start.Day, start.PeriodID)
		if !ok {
			return nil
		}
		coords = append(coords, models.Coordinate{Day: start.Day, PeriodID: next.ID})
	}
	for _, c := range coords {
		if r.blocked[cell{c.Day, c.PeriodID, u.TeacherID}] || r.avoided[cell{c.Day, c.PeriodID, u.ClassID}] {
			return nil
		}
	}

	seen := make(map[*placement]bool)
	var out []*placement
	consider := func(p *placement, ok bool) {
		if !ok || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	for _, c := range coords {
		p, ok := r.state.classAt[cell{c.Day, c.PeriodID, u.ClassID}]
		consider(p, ok)
		if !r.exam {
			p, ok = r.state.teacherAt[cell{c.Day, c.PeriodID, u.TeacherID}]
			consider(p, ok)
		}
	}
	if u.RequiresLab && len(r.labs) > 0 {
		// Any one lab is enough; evict from the first lab in roster order.
		lab := r.labs[0].ID
		for _, c := range coords {
			p, ok := r.state.roomAt[cell{c.Day, c.PeriodID, lab}]
			consider(p, ok)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].unit.order < out[j].unit.order })
	return out
}
