package grid

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/volrend/go-volrend/pkg/launch"
)

// Cascade is an ordered set of K occupancy bitmasks, each covering a cube of
// G^3 cells. Level k spans the world cube [-bound*2^k, bound*2^k]^3, so
// higher levels cover more space at lower resolution per cell while keeping
// the cell count fixed. Cells within a level are addressed in Morton order;
// levels are concatenated in the bitfield.
//
// All K levels are always present: a scene that needs fewer simply never
// marks the outer levels occupied. The cascade is read-only during marching
// and only mutated by a full rebuild; callers must not run the two
// concurrently against the same bitfield.
type Cascade struct {
	K        int
	G        int
	Bitfield []byte // K*G^3/8 bytes
}

// NewCascade allocates an all-empty cascade with K levels of resolution G.
func NewCascade(k, g int) (*Cascade, error) {
	if k <= 0 {
		return nil, launch.Configf("cascade: K must be positive, got %d", k)
	}
	if g <= 0 || g > 1024 {
		return nil, launch.Configf("cascade: G must be in [1, 1024], got %d", g)
	}
	if (g*g*g)%8 != 0 {
		return nil, launch.Configf("cascade: G^3 must be divisible by 8, got G=%d", g)
	}
	return &Cascade{
		K:        k,
		G:        g,
		Bitfield: make([]byte, k*g*g*g/8),
	}, nil
}

// LevelCells returns the number of cells per cascade level.
func (c *Cascade) LevelCells() int {
	return c.G * c.G * c.G
}

// LevelBytes returns the number of bitfield bytes per cascade level.
func (c *Cascade) LevelBytes() int {
	return c.LevelCells() / 8
}

// Level returns the bitfield slice backing a single cascade level, e.g. as
// the output buffer for a packing call.
func (c *Cascade) Level(level int) []byte {
	return c.Bitfield[level*c.LevelBytes() : (level+1)*c.LevelBytes()]
}

// LevelExtent returns the half-extent of cascade level k for a scene bound.
func LevelExtent(bound float32, level int) float32 {
	return bound * float32(uint32(1)<<uint(level))
}

// CellWidth returns the world-space width of one cell at the given level.
func (c *Cascade) CellWidth(bound float32, level int) float32 {
	return 2 * LevelExtent(bound, level) / float32(c.G)
}

// CellIndex returns the bit position of cell (x, y, z) at the given level.
func (c *Cascade) CellIndex(level int, x, y, z uint32) int {
	return level*c.LevelCells() + int(EncodeMorton3(x, y, z))
}

// SetOccupied marks a single cell occupied. Intended for tests and grid
// builders; bulk rebuilds go through PackDensityIntoBits.
func (c *Cascade) SetOccupied(level int, x, y, z uint32) {
	idx := c.CellIndex(level, x, y, z)
	c.Bitfield[idx>>3] |= 1 << uint(idx&7)
}

// OccupiedCell reports whether cell (x, y, z) at the given level is occupied.
func (c *Cascade) OccupiedCell(level int, x, y, z uint32) bool {
	idx := c.CellIndex(level, x, y, z)
	return c.Bitfield[idx>>3]&(1<<uint(idx&7)) != 0
}

// MipLevel returns the smallest cascade level whose extent contains p,
// clamped to [0, K-1].
func (c *Cascade) MipLevel(p mgl32.Vec3, bound float32) int {
	m := math32.Max(math32.Abs(p[0]), math32.Max(math32.Abs(p[1]), math32.Abs(p[2])))
	frac := m / bound
	level := 0
	for level < c.K-1 && frac > float32(uint32(1)<<uint(level)) {
		level++
	}
	return level
}

// GridCoords maps a world position into integer grid coordinates in [0, G)^3
// at the given level, clamping positions on the boundary into range.
func (c *Cascade) GridCoords(level int, p mgl32.Vec3, bound float32) (x, y, z uint32) {
	extent := LevelExtent(bound, level)
	g := float32(c.G)
	coord := func(v float32) uint32 {
		cell := int32((v/extent*0.5 + 0.5) * g)
		if cell < 0 {
			cell = 0
		}
		if cell >= int32(c.G) {
			cell = int32(c.G) - 1
		}
		return uint32(cell)
	}
	return coord(p[0]), coord(p[1]), coord(p[2])
}

// Occupied reports whether the cell containing p at the given level is
// marked occupied.
func (c *Cascade) Occupied(level int, p mgl32.Vec3, bound float32) bool {
	x, y, z := c.GridCoords(level, p, bound)
	return c.OccupiedCell(level, x, y, z)
}

// Validate checks the cascade against a marching descriptor.
func (c *Cascade) Validate(k, g uint32) error {
	if c.K != int(k) || c.G != int(g) {
		return launch.Configf("cascade: got K=%d G=%d, descriptor says K=%d G=%d", c.K, c.G, k, g)
	}
	if len(c.Bitfield) != c.K*c.LevelBytes() {
		return launch.Configf("cascade: bitfield length %d, want %d", len(c.Bitfield), c.K*c.LevelBytes())
	}
	return nil
}

// FromBitfield wraps a caller-owned bitfield as a cascade without copying.
func FromBitfield(k, g int, bitfield []byte) (*Cascade, error) {
	if k <= 0 {
		return nil, launch.Configf("cascade: K must be positive, got %d", k)
	}
	if g <= 0 || g > 1024 || (g*g*g)%8 != 0 {
		return nil, launch.Configf("cascade: invalid G %d", g)
	}
	if want := k * g * g * g / 8; len(bitfield) != want {
		return nil, launch.Configf("cascade: bitfield length %d, want %d", len(bitfield), want)
	}
	return &Cascade{K: k, G: g, Bitfield: bitfield}, nil
}
