package mesh

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Edge is an undirected edge between two exact positions, A < B.
type Edge struct {
	A, B v3.Vec
}

// MakeEdge returns the edge between p and q with its endpoints ordered.
func MakeEdge(p, q v3.Vec) Edge {
	if less(q, p) {
		p, q = q, p
	}
	return Edge{A: p, B: q}
}

func less(a, b v3.Vec) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

// EdgeUse counts how many triangles of the soup use each edge. Positions are
// compared exactly, so the counts reflect how well neighbouring cells agree.
func EdgeUse(s *Soup) map[Edge]int {
	use := make(map[Edge]int, s.Len()*3/2)
	for _, t := range s.Triangles() {
		use[MakeEdge(t[0], t[1])]++
		use[MakeEdge(t[1], t[2])]++
		use[MakeEdge(t[2], t[0])]++
	}
	return use
}

// IsClosed reports whether every edge of the soup is shared by exactly two
// triangles. An empty soup is closed.
func IsClosed(s *Soup) bool {
	for _, n := range EdgeUse(s) {
		if n != 2 {
			return false
		}
	}
	return true
}

// IsConsistentlyOriented reports whether every directed edge occurs at most
// once, which holds when neighbouring triangles wind the same way.
func IsConsistentlyOriented(s *Soup) bool {
	seen := make(map[[2]v3.Vec]bool, s.Len()*3)
	for _, t := range s.Triangles() {
		for j := 0; j < 3; j++ {
			e := [2]v3.Vec{t[j], t[(j+1)%3]}
			if seen[e] {
				return false
			}
			seen[e] = true
		}
	}
	return true
}
