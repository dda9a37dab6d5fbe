package spatial

import "math"

// BoxGrid is a uniform grid over the horizontal plane for broad-phase
// overlap queries between axis-aligned boxes. A box is stored in every
// cell it covers. Coordinates are offset by the world extent so negative
// map coordinates land in the grid.
//
// Memory layout: cells are stored in row-major order (cells[row*cols+col]).
// The grid is rebuilt every frame: Clear, then Insert each linked box.
type BoxGrid struct {
	cellSize    float64
	invCellSize float64
	offset      float64
	cols, rows  int
	cells       [][]uint32

	scratch []uint32 // reusable query result buffer
	stamp   []uint32 // per-id query stamp for de-duplication
	query   uint32
}

// NewBoxGrid covers [-extent, extent] on both horizontal axes.
// maxIDs bounds the ids that will be inserted.
func NewBoxGrid(extent, cellSize float64, maxIDs int) *BoxGrid {
	if cellSize <= 0 {
		cellSize = 512
	}
	n := int(math.Ceil(2 * extent / cellSize))
	if n < 1 {
		n = 1
	}

	cells := make([][]uint32, n*n)
	for i := range cells {
		cells[i] = make([]uint32, 0, 4)
	}

	return &BoxGrid{
		cellSize:    cellSize,
		invCellSize: 1 / cellSize,
		offset:      extent,
		cols:        n,
		rows:        n,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
		stamp:       make([]uint32, maxIDs),
	}
}

// Clear resets all cells without deallocating.
func (g *BoxGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *BoxGrid) span(minX, minY, maxX, maxY float64) (c0, r0, c1, r1 int) {
	c0 = g.clampCol(int((minX + g.offset) * g.invCellSize))
	c1 = g.clampCol(int((maxX + g.offset) * g.invCellSize))
	r0 = g.clampRow(int((minY + g.offset) * g.invCellSize))
	r1 = g.clampRow(int((maxY + g.offset) * g.invCellSize))
	return
}

func (g *BoxGrid) clampCol(c int) int {
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *BoxGrid) clampRow(r int) int {
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

// Insert adds id to every cell the box touches. Boxes outside the
// extent are clamped to the border cells.
func (g *BoxGrid) Insert(id uint32, minX, minY, maxX, maxY float64) {
	c0, r0, c1, r1 := g.span(minX, minY, maxX, maxY)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			idx := row*g.cols + col
			g.cells[idx] = append(g.cells[idx], id)
		}
	}
}

// Query returns each id sharing a cell with the box exactly once.
// Candidates may not actually overlap; the caller does the exact test.
//
// IMPORTANT: The returned slice is reused on subsequent calls.
func (g *BoxGrid) Query(minX, minY, maxX, maxY float64) []uint32 {
	g.scratch = g.scratch[:0]
	g.query++
	if g.query == 0 {
		clear(g.stamp)
		g.query = 1
	}

	c0, r0, c1, r1 := g.span(minX, minY, maxX, maxY)
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			for _, id := range g.cells[row*g.cols+col] {
				if int(id) < len(g.stamp) {
					if g.stamp[id] == g.query {
						continue
					}
					g.stamp[id] = g.query
				}
				g.scratch = append(g.scratch, id)
			}
		}
	}
	return g.scratch
}

// Stats returns grid statistics for debugging.
func (g *BoxGrid) Stats() GridStats {
	var total, maxInCell, nonEmpty int
	for _, cell := range g.cells {
		n := len(cell)
		total += n
		if n > maxInCell {
			maxInCell = n
		}
		if n > 0 {
			nonEmpty++
		}
	}

	avg := 0.0
	if nonEmpty > 0 {
		avg = float64(total) / float64(nonEmpty)
	}
	return GridStats{
		TotalCells:     len(g.cells),
		NonEmptyCells:  nonEmpty,
		TotalEntries:   total,
		MaxInCell:      maxInCell,
		AvgPerNonEmpty: avg,
	}
}

// GridStats contains grid statistics for debugging.
type GridStats struct {
	TotalCells     int
	NonEmptyCells  int
	TotalEntries   int
	MaxInCell      int
	AvgPerNonEmpty float64
}

// Dimensions returns the grid dimensions.
func (g *BoxGrid) Dimensions() (cols, rows int, cellSize float64) {
	return g.cols, g.rows, g.cellSize
}
