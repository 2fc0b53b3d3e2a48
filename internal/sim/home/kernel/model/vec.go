package model

// Vec3i is a position in block units. X and Y are horizontal, Z is up.
type Vec3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

// Scale converts block units into world units.
func (v Vec3i) Scale(blockSize int) Vec3i {
	return Vec3i{X: v.X * blockSize, Y: v.Y * blockSize, Z: v.Z * blockSize}
}
