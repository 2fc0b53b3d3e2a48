package spatial

import "homecraft.ai/internal/sim/home/kernel/model"

type Resize int

const (
	IncreaseSize Resize = iota + 1
	DecreaseSize
	IncreaseHeight
	DecreaseHeight
)

func (r Resize) String() string {
	switch r {
	case IncreaseSize:
		return "INCREASE_SIZE"
	case DecreaseSize:
		return "DECREASE_SIZE"
	case IncreaseHeight:
		return "INCREASE_HEIGHT"
	case DecreaseHeight:
		return "DECREASE_HEIGHT"
	default:
		return "UNKNOWN"
	}
}

func ParseResize(s string) (Resize, bool) {
	for r := IncreaseSize; r <= DecreaseHeight; r++ {
		if r.String() == s {
			return r, true
		}
	}
	return 0, false
}

func (r Resize) Shrinks() bool { return r == DecreaseSize || r == DecreaseHeight }

// Apply returns the bounds after r. ok is false when the result would leave the
// allowed range, in which case b is returned unchanged.
func Apply(b Bounds, r Resize) (next Bounds, ok bool) {
	next = b
	switch r {
	case IncreaseSize:
		next.Size++
	case DecreaseSize:
		next.Size--
	case IncreaseHeight:
		next.Height++
	case DecreaseHeight:
		next.Height--
	default:
		return b, false
	}
	if !next.Valid() {
		return b, false
	}
	return next, true
}

// InVacatedShell reports whether pos is in the shell a shrink r removes from bounds b
// (b is the bounds before the shrink). Growth vacates nothing.
func InVacatedShell(pos model.Vec3i, b Bounds, r Resize) bool {
	switch r {
	case DecreaseSize:
		edge := -(b.Size - 1)
		return pos.X == edge || pos.Y == edge
	case DecreaseHeight:
		return pos.Z == b.Height
	default:
		return false
	}
}
