// Package spatial answers placement-bound questions for a home. It holds no state.
package spatial

import "homecraft.ai/internal/sim/home/kernel/model"

// Terrain reports whether fixed map geometry occupies a block position.
type Terrain func(pos model.Vec3i) bool

// Bounds is the bounding box of a home: X and Y span [-(Size-1), 0], Z spans [0, Height].
type Bounds struct {
	Size   int
	Height int
}

func (b Bounds) Valid() bool {
	return b.Size >= model.MinSize && b.Size <= model.MaxSize &&
		b.Height >= model.MinHeight && b.Height <= model.MaxHeight
}

// OutsideHeightLimit scans the column of pos from the height limit down to the floor.
// Any terrain block in the scanned range invalidates the coordinate, as does a Z outside
// [0, height].
func OutsideHeightLimit(terrain Terrain, pos model.Vec3i, height int) bool {
	if pos.Z < 0 || pos.Z > height {
		return true
	}
	if terrain == nil {
		return false
	}
	cur := model.Vec3i{X: pos.X, Y: pos.Y, Z: height}
	for i := 0; i <= height; i++ {
		if terrain(cur) {
			return true
		}
		cur.Z--
	}
	return false
}

// OutsideSizeLimit reports whether pos lies outside the horizontal box of a home of the given size.
func OutsideSizeLimit(pos model.Vec3i, size int) bool {
	lim := -(size - 1)
	return pos.X < lim || pos.X > 0 || pos.Y < lim || pos.Y > 0
}

// GroundCoord returns the floor coordinate of the column holding pos. The floor is
// the implicit Z=0 layer made of default tiles.
//
// Terrain is not consulted here, unlike OutsideHeightLimit: home and plot maps have a
// flat floor, so the ground of every column is Z=0 whatever the map geometry around
// it. Maps with uneven ground would need a per-column height lookup.
func GroundCoord(pos model.Vec3i) model.Vec3i {
	return model.Vec3i{X: pos.X, Y: pos.Y, Z: 0}
}

// SafeCoord is a world-unit position that stays inside a home of the given size.
func SafeCoord(size, blockSize int) model.Vec3i {
	x := -blockSize * (size - 1)
	return model.Vec3i{X: x, Y: x, Z: blockSize * 3}
}
