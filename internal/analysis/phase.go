package analysis

import (
	"strings"

	"github.com/san-kum/modsim/internal/modular"
)

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	Atom, Dim int
	Points    []struct{ X, Y float64 }
}

// NewPhasePortrait collects (x, v) of one coordinate of one atom from every
// frame carrying both positions and velocities.
func NewPhasePortrait(frames []*modular.Frame, atom, dim int) *PhasePortrait2D {
	if dim < 0 || dim > 2 || atom < 0 {
		return nil
	}

	portrait := &PhasePortrait2D{
		Atom:   atom,
		Dim:    dim,
		Points: make([]struct{ X, Y float64 }, 0, len(frames)),
	}
	for _, f := range frames {
		if atom >= len(f.X) || atom >= len(f.V) {
			continue
		}
		portrait.Points = append(portrait.Points, struct{ X, Y float64 }{
			X: f.X[atom][dim],
			Y: f.V[atom][dim],
		})
	}
	return portrait
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y
	for _, p := range portrait.Points {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// zero velocity axis
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
