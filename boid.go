package octree

// AnchorForPosition maps a boid position to its finest-level containing
// octant (spec §3): anchor[d] = floor(pos[d]/cell), cell =
// gridExtent/2^Dmax, depth = Dmax. The boid's own state (velocity,
// flocking forces) is an external collaborator's concern; this is the one
// piece of that collaborator's data model the core consumes.
//
// pos must have exactly sp.D coordinates, each in [0, gridExtent); this is
// the caller's responsibility (the simulation keeps boids inside the box),
// not re-validated here since it runs once per boid per timestep and must
// stay allocation-light.
func (sp *Space) AnchorForPosition(pos []float64, gridExtent float64) Octant {
	cell := gridExtent / float64(uint64(1)<<sp.Dmax)
	anchor := make(Coord, sp.D)
	for d := 0; d < sp.D; d++ {
		anchor[d] = uint32(pos[d] / cell)
	}
	return Octant{Anchor: anchor, Depth: sp.Dmax}
}
