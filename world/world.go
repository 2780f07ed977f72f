// Package world provides the grid the simulation runs on: terrain, resources
// and agent occupancy.
package world

import "fmt"

// Terrain classifies a tile. Water and mountains cannot be entered; plains
// and forest differ in movement cost.
type Terrain uint8

const (
	Plains Terrain = iota
	Forest
	Water
	Mountains
)

func (t Terrain) String() string {
	switch t {
	case Plains:
		return "plains"
	case Forest:
		return "forest"
	case Water:
		return "water"
	case Mountains:
		return "mountains"
	default:
		return "unknown"
	}
}

// ResourceType identifies what a tile's resource yields when used.
type ResourceType uint8

const (
	Plant ResourceType = iota
	Prey
	Carcass
	Spring
)

func (r ResourceType) String() string {
	switch r {
	case Plant:
		return "plant"
	case Prey:
		return "prey"
	case Carcass:
		return "carcass"
	case Spring:
		return "spring"
	default:
		return "unknown"
	}
}

// IsFood reports whether the resource restores hunger.
func (r ResourceType) IsFood() bool {
	return r == Plant || r == Prey || r == Carcass
}

// Resource sits on a tile and is consumed by eat or drink actions. A food
// resource disappears when UsesLeft hits zero; springs deplete by chance
// instead (UsesLeft stays negative as a sentinel).
type Resource struct {
	Type     ResourceType
	UsesLeft int
}

// Tile is one grid cell. Occupant is the ID of the agent standing on the
// tile, or zero when empty; agent IDs start at one.
type Tile struct {
	Terrain  Terrain
	Resource *Resource
	Occupant uint32
}

// Grid is the simulation arena. Tiles are stored row-major.
type Grid struct {
	Width  int
	Height int
	tiles  []Tile

	forestMoveCost float64
}

// NewGrid allocates an all-plains grid of the given size.
func NewGrid(width, height int, forestMoveCost float64) *Grid {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("world: invalid grid size %dx%d", width, height))
	}
	return &Grid{
		Width:          width,
		Height:         height,
		tiles:          make([]Tile, width*height),
		forestMoveCost: forestMoveCost,
	}
}

// InBounds reports whether (x, y) lies on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// Tile returns the tile at (x, y). Out-of-bounds access is a programming
// error.
func (g *Grid) Tile(x, y int) *Tile {
	if !g.InBounds(x, y) {
		panic(fmt.Sprintf("world: tile access out of bounds (%d,%d)", x, y))
	}
	return &g.tiles[y*g.Width+x]
}

// Passable reports whether an agent may stand on (x, y). Water and mountain
// tiles and out-of-bounds coordinates are impassable.
func (g *Grid) Passable(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	t := g.tiles[y*g.Width+x].Terrain
	return t == Plains || t == Forest
}

// MoveCost returns the energy multiplier for entering (x, y). Callers must
// check Passable first.
func (g *Grid) MoveCost(x, y int) float64 {
	if g.Tile(x, y).Terrain == Forest {
		return g.forestMoveCost
	}
	return 1.0
}

// Neighborhood fills out the 3x3 window centered on (x, y) in row-major
// order (NW, N, NE, W, center, E, SE... left to right, top to bottom).
// Out-of-bounds cells are nil.
func (g *Grid) Neighborhood(x, y int) [9]*Tile {
	var out [9]*Tile
	i := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if g.InBounds(x+dx, y+dy) {
				out[i] = g.Tile(x+dx, y+dy)
			}
			i++
		}
	}
	return out
}

// HasWaterAccess reports whether an agent standing on (x, y) can drink: the
// tile holds a spring, or one of the four cardinal neighbors is water.
func (g *Grid) HasWaterAccess(x, y int) bool {
	t := g.Tile(x, y)
	if t.Resource != nil && t.Resource.Type == Spring {
		return true
	}
	for _, d := range [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}} {
		nx, ny := x+d[0], y+d[1]
		if g.InBounds(nx, ny) && g.Tile(nx, ny).Terrain == Water {
			return true
		}
	}
	return false
}
