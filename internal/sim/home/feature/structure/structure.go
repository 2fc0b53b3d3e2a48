// Package structure holds the cube sets of one home: live (indoor and on its plot),
// planner and warehouse.
// It is not safe for concurrent use; the owning home serializes access.
package structure

import (
	"sort"

	modelpkg "homecraft.ai/internal/sim/home/kernel/model"
)

// Set is one mode's cubes, indexed by coordinate and by uid.
type Set struct {
	byPos map[modelpkg.Vec3i]modelpkg.Cube
	byUID map[string]modelpkg.Vec3i
}

func NewSet() *Set {
	return &Set{
		byPos: map[modelpkg.Vec3i]modelpkg.Cube{},
		byUID: map[string]modelpkg.Vec3i{},
	}
}

// Insert adds c. It refuses an occupied coordinate or a duplicate uid.
func (s *Set) Insert(c modelpkg.Cube) bool {
	if _, ok := s.byPos[c.Pos]; ok {
		return false
	}
	if _, ok := s.byUID[c.UID]; ok {
		return false
	}
	s.byPos[c.Pos] = c
	s.byUID[c.UID] = c.Pos
	return true
}

func (s *Set) At(pos modelpkg.Vec3i) (modelpkg.Cube, bool) {
	c, ok := s.byPos[pos]
	return c, ok
}

func (s *Set) Get(uid string) (modelpkg.Cube, bool) {
	pos, ok := s.byUID[uid]
	if !ok {
		return modelpkg.Cube{}, false
	}
	return s.byPos[pos], true
}

func (s *Set) Occupied(pos modelpkg.Vec3i) bool {
	_, ok := s.byPos[pos]
	return ok
}

func (s *Set) Remove(pos modelpkg.Vec3i) (modelpkg.Cube, bool) {
	c, ok := s.byPos[pos]
	if !ok {
		return modelpkg.Cube{}, false
	}
	delete(s.byPos, pos)
	delete(s.byUID, c.UID)
	return c, true
}

// Rotate turns the cube at pos by delta degrees and returns the updated cube.
func (s *Set) Rotate(pos modelpkg.Vec3i, delta int) (modelpkg.Cube, bool) {
	c, ok := s.byPos[pos]
	if !ok {
		return modelpkg.Cube{}, false
	}
	c.Rotation = modelpkg.NormalizeRotation(c.Rotation + delta)
	s.byPos[pos] = c
	return c, true
}

func (s *Set) Len() int { return len(s.byPos) }

// Cubes returns every cube ordered by Z, then Y, then X.
func (s *Set) Cubes() []modelpkg.Cube {
	out := make([]modelpkg.Cube, 0, len(s.byPos))
	for _, c := range s.byPos {
		out = append(out, c)
	}
	sortCubes(out)
	return out
}

// Select returns the cubes matching keep, in Cubes order.
func (s *Set) Select(keep func(modelpkg.Cube) bool) []modelpkg.Cube {
	var out []modelpkg.Cube
	for _, c := range s.byPos {
		if keep(c) {
			out = append(out, c)
		}
	}
	sortCubes(out)
	return out
}

func sortCubes(cs []modelpkg.Cube) {
	sort.Slice(cs, func(i, j int) bool {
		a, b := cs[i].Pos, cs[j].Pos
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}

// Store is the full structure state of a home. Live holds the residence interior and
// Plot the outdoor plot; both are persisted. Planner is never persisted.
type Store struct {
	Live      *Set
	Plot      *Set
	Planner   *Set
	Warehouse *Warehouse
}

func New() *Store {
	return &Store{Live: NewSet(), Plot: NewSet(), Planner: NewSet(), Warehouse: NewWarehouse()}
}

// Mode returns the planner set when planner is true and the live set otherwise.
func (s *Store) Mode(planner bool) *Set {
	if planner {
		return s.Planner
	}
	return s.Live
}
