// Package layout assigns 2-D coordinates to the steps of a flow and
// computes curve geometry for its dependency edges. The algorithm is a
// Sugiyama-style layered layout: column = topological depth, row = position
// within the column chosen by a barycenter heuristic. Compute is a pure
// function of the step list; the same input always produces the same output.
package layout

import (
	"sort"

	"github.com/flowdeck/flowdeck/internal/core/flow"
	"github.com/flowdeck/flowdeck/internal/infrastructure/metrics"
)

// Node and spacing dimensions, in abstract canvas units.
const (
	NodeWidth  = 180.0
	NodeHeight = 72.0
	ColumnGap  = 80.0
	RowGap     = 40.0
	Padding    = 24.0
	// EdgeSpread separates the control points of sibling edges running
	// between the same column pair.
	EdgeSpread = 14.0
)

// Point is a 2-D canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodePosition places one step on the canvas. X/Y address the node's
// top-left corner.
type NodePosition struct {
	ID     string  `json:"id"`
	Column int     `json:"column"`
	Row    int     `json:"row"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// EdgePath is the cubic bezier connector for one dependency edge, running
// from the source node's right anchor to the target node's left anchor.
type EdgePath struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Start Point  `json:"start"`
	C1    Point  `json:"c1"`
	C2    Point  `json:"c2"`
	End   Point  `json:"end"`
}

// Layout is the complete diagram geometry for one step list.
type Layout struct {
	Nodes   map[string]NodePosition `json:"nodes"`
	Edges   []EdgePath              `json:"edges"`
	Width   float64                 `json:"width"`
	Height  float64                 `json:"height"`
	Columns int                     `json:"columns"`
}

// Compute lays out the given steps. Unknown dependency ids are ignored;
// callers are expected to hand in validated flows, but a malformed list
// still yields a usable (if partial) diagram rather than a panic.
func Compute(steps []*flow.Step) *Layout {
	byID := make(map[string]*flow.Step, len(steps))
	for _, s := range steps {
		if s != nil {
			byID[s.ID] = s
		}
	}

	columns := level(byID)

	// Bucket steps per column.
	var columnCount int
	buckets := make(map[int][]string)
	for id, col := range columns {
		buckets[col] = append(buckets[col], id)
		if col+1 > columnCount {
			columnCount = col + 1
		}
	}

	rows := assignRows(byID, columns, buckets, columnCount)

	nodes := make(map[string]NodePosition, len(byID))
	maxRows := 0
	for id, col := range columns {
		row := rows[id]
		nodes[id] = NodePosition{
			ID:     id,
			Column: col,
			Row:    row,
			X:      Padding + float64(col)*(NodeWidth+ColumnGap),
			Y:      Padding + float64(row)*(NodeHeight+RowGap),
		}
		if row+1 > maxRows {
			maxRows = row + 1
		}
	}

	l := &Layout{
		Nodes:   nodes,
		Edges:   edgeGeometry(byID, nodes, columns),
		Columns: columnCount,
	}
	if columnCount > 0 {
		l.Width = 2*Padding + float64(columnCount)*NodeWidth + float64(columnCount-1)*ColumnGap
		l.Height = 2*Padding + float64(maxRows)*NodeHeight + float64(maxRows-1)*RowGap
	}

	metrics.IncLayoutsComputed()
	return l
}

// level assigns each step the length of the longest dependency chain ending
// at it. Roots are column 0. A visiting guard keeps accidental cycles from
// recursing forever; they resolve to depth 0 and are the validator's
// problem, not ours.
func level(byID map[string]*flow.Step) map[string]int {
	columns := make(map[string]int, len(byID))
	done := make(map[string]bool, len(byID))
	visiting := make(map[string]bool, len(byID))

	var depth func(id string) int
	depth = func(id string) int {
		if done[id] {
			return columns[id]
		}
		if visiting[id] {
			return 0
		}
		visiting[id] = true
		col := 0
		for _, dep := range byID[id].DependsOn {
			if _, ok := byID[dep]; !ok {
				continue
			}
			if d := depth(dep) + 1; d > col {
				col = d
			}
		}
		visiting[id] = false
		done[id] = true
		columns[id] = col
		return col
	}

	for id := range byID {
		depth(id)
	}
	return columns
}

// assignRows orders each column's steps by the mean row of their
// dependencies in earlier columns (a cheap crossing-reduction heuristic),
// breaking ties lexicographically so the layout is deterministic.
func assignRows(byID map[string]*flow.Step, columns map[string]int, buckets map[int][]string, columnCount int) map[string]int {
	rows := make(map[string]int, len(byID))

	for col := 0; col < columnCount; col++ {
		ids := buckets[col]
		barycenter := make(map[string]float64, len(ids))
		for _, id := range ids {
			sum, n := 0.0, 0
			for _, dep := range byID[id].DependsOn {
				if row, ok := rows[dep]; ok && columns[dep] < col {
					sum += float64(row)
					n++
				}
			}
			if n > 0 {
				barycenter[id] = sum / float64(n)
			}
		}
		sort.Slice(ids, func(i, j int) bool {
			if barycenter[ids[i]] != barycenter[ids[j]] {
				return barycenter[ids[i]] < barycenter[ids[j]]
			}
			return ids[i] < ids[j]
		})
		for row, id := range ids {
			rows[id] = row
		}
	}
	return rows
}

// edgeGeometry computes one cubic bezier per dependency edge, fanning out
// the control points of edges sharing a column pair.
func edgeGeometry(byID map[string]*flow.Step, nodes map[string]NodePosition, columns map[string]int) []EdgePath {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type colPair struct{ from, to int }
	seen := make(map[colPair]int)

	var edges []EdgePath
	for _, id := range ids {
		for _, dep := range byID[id].DependsOn {
			from, ok := nodes[dep]
			if !ok {
				continue
			}
			to := nodes[id]

			start := Point{X: from.X + NodeWidth, Y: from.Y + NodeHeight/2}
			end := Point{X: to.X, Y: to.Y + NodeHeight/2}

			pair := colPair{columns[dep], columns[id]}
			offset := float64(seen[pair]) * EdgeSpread
			seen[pair]++

			midX := (start.X + end.X) / 2
			edges = append(edges, EdgePath{
				From:  dep,
				To:    id,
				Start: start,
				C1:    Point{X: midX + offset, Y: start.Y},
				C2:    Point{X: midX + offset, Y: end.Y},
				End:   end,
			})
		}
	}
	return edges
}
