package scene

import (
	"math"
	"strings"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/isomesh/pkg/bbox"
	"github.com/chazu/isomesh/pkg/octree"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// buildValidScene creates a ball with a hole drilled through it, one job
// extracting it, and every node reachable from that job.
func buildValidScene() *Scene {
	s := New()

	ballID := NewNodeID("sphere/ball")
	drillID := NewNodeID("cylinder/drill")
	tiltID := NewNodeID("rotate/drill")
	cutID := NewNodeID("difference/cut")

	s.AddNode(&Node{ID: ballID, Kind: NodePrimitive, Name: "ball", Data: SphereData{Radius: 5}})
	s.AddNode(&Node{ID: drillID, Kind: NodePrimitive, Data: CylinderData{Height: 20, Radius: 1}})
	s.AddNode(&Node{
		ID: tiltID, Kind: NodeTransform, Children: []NodeID{drillID},
		Data: TransformData{Rotation: &v3.Vec{X: 90}},
	})
	s.AddNode(&Node{
		ID: cutID, Kind: NodeBoolean, Name: "cut", Children: []NodeID{ballID, tiltID},
		Data: BooleanData{Op: OpDifference},
	})
	s.AddJob(Job{Name: "cut", Root: cutID, Depth: 4, Policy: octree.Adaptive})

	return s
}

// hasError returns true if errs contains at least one error-severity finding
// whose message contains substr.
func hasError(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityError && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// hasWarning returns true if errs contains at least one warning-severity
// finding whose message contains substr.
func hasWarning(errs []ValidationError, substr string) bool {
	for _, e := range errs {
		if e.Severity == SeverityWarning && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Scene API
// ---------------------------------------------------------------------------

func TestNodeIDIsContentAddressed(t *testing.T) {
	a := NewNodeID("sphere/ball")
	b := NewNodeID("sphere/ball")
	c := NewNodeID("sphere/other")
	if a != b {
		t.Errorf("same path gave different IDs: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different paths gave the same ID")
	}
	if len(a) != 64 {
		t.Errorf("len(id) = %d, want 64", len(a))
	}
	if got := a.Short(); len(got) != 8 || !strings.HasPrefix(string(a), got) {
		t.Errorf("Short() = %q", got)
	}
	if a.IsZero() || !ZeroID.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestLookupAndChildren(t *testing.T) {
	s := buildValidScene()

	if s.NodeCount() != 4 {
		t.Fatalf("NodeCount() = %d, want 4", s.NodeCount())
	}
	ball := s.Lookup("ball")
	if ball == nil {
		t.Fatal("Lookup(ball) = nil")
	}
	if _, ok := ball.Data.(SphereData); !ok {
		t.Errorf("ball data is %T", ball.Data)
	}
	if s.Lookup("nope") != nil {
		t.Error("Lookup(nope) should be nil")
	}

	cut := s.MustLookup("cut")
	kids := s.Children(cut)
	if len(kids) != 2 || kids[0].ID != ball.ID {
		t.Errorf("Children(cut) = %v", kids)
	}
	if s.Get(cut.ID) != cut {
		t.Error("Get(cut.ID) did not return cut")
	}
}

func TestMustLookupPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustLookup of a missing name did not panic")
		}
	}()
	New().MustLookup("missing")
}

func TestKindStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{NodePrimitive.String(), "primitive"},
		{NodeBoolean.String(), "boolean"},
		{NodeTransform.String(), "transform"},
		{NodeKind(99).String(), "unknown"},
		{OpUnion.String(), "union"},
		{OpDifference.String(), "difference"},
		{OpIntersection.String(), "intersection"},
		{SeverityWarning.String(), "warning"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestValidateValidScene(t *testing.T) {
	errs := buildValidScene().Validate()
	if len(errs) != 0 {
		t.Errorf("expected no findings, got %v", errs)
	}
	if HasErrors(errs) {
		t.Error("HasErrors() = true for a valid scene")
	}
}

func TestValidateEmptyScene(t *testing.T) {
	if errs := New().Validate(); len(errs) != 0 {
		t.Errorf("expected no findings for an empty scene, got %v", errs)
	}
}

func TestValidateCycle(t *testing.T) {
	s := buildValidScene()
	cut := s.MustLookup("cut")
	tilt := s.Get(cut.Children[1])
	tilt.Children = []NodeID{cut.ID}

	if !hasError(s.Validate(), "cycle") {
		t.Error("expected a cycle error")
	}
}

func TestValidateDanglingChild(t *testing.T) {
	s := buildValidScene()
	cut := s.MustLookup("cut")
	cut.Children = append(cut.Children, NewNodeID("ghost"))

	if !hasError(s.Validate(), "does not exist") {
		t.Error("expected a dangling reference error")
	}
}

func TestValidateDuplicateNames(t *testing.T) {
	s := buildValidScene()
	id := NewNodeID("sphere/ball2")
	s.AddNode(&Node{ID: id, Kind: NodePrimitive, Name: "ball", Data: SphereData{Radius: 1}})

	if !hasError(s.Validate(), "duplicate name") {
		t.Error("expected a duplicate name error")
	}
}

func TestValidateShapes(t *testing.T) {
	tests := []struct {
		name string
		node *Node
		want string
	}{
		{"zero radius", &Node{Kind: NodePrimitive, Data: SphereData{}}, "radius"},
		{"infinite radius", &Node{Kind: NodePrimitive, Data: SphereData{Radius: math.Inf(1)}}, "radius"},
		{"flat box", &Node{Kind: NodePrimitive, Data: BoxData{Size: v3.Vec{X: 1, Y: 1}}}, "box size"},
		{"negative rounding", &Node{Kind: NodePrimitive, Data: BoxData{Size: v3.Vec{X: 1, Y: 1, Z: 1}, Round: -1}}, "rounding"},
		{"thin cylinder", &Node{Kind: NodePrimitive, Data: CylinderData{Height: 1}}, "cylinder"},
		{"lonely union", &Node{Kind: NodeBoolean, Data: BooleanData{Op: OpUnion}}, "at least 2"},
		{"orphan transform", &Node{Kind: NodeTransform, Data: TransformData{}}, "exactly 1"},
		{"mismatched kind", &Node{Kind: NodeBoolean, Data: SphereData{Radius: 1}}, "carries"},
		{"no data", &Node{Kind: NodePrimitive}, "no data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			tt.node.ID = NewNodeID(tt.name)
			s.AddNode(tt.node)
			if errs := s.Validate(); !hasError(errs, tt.want) {
				t.Errorf("expected an error containing %q, got %v", tt.want, errs)
			}
		})
	}
}

func TestValidateNonFiniteTransform(t *testing.T) {
	s := buildValidScene()
	cut := s.MustLookup("cut")
	tilt := s.Get(cut.Children[1])
	tilt.Data = TransformData{Translation: &v3.Vec{X: math.NaN()}}

	if !hasError(s.Validate(), "non-finite") {
		t.Error("expected a non-finite transform error")
	}
}

func TestValidateJobs(t *testing.T) {
	inverted := bbox.FromCoords(1, 1, 1, -1, -1, -1)
	infinite := bbox.FromCoords(math.Inf(-1), 0, 0, 1, 1, 1)

	tests := []struct {
		name string
		edit func(j *Job)
		want string
	}{
		{"no name", func(j *Job) { j.Name = "" }, "no name"},
		{"no shape", func(j *Job) { j.Root = ZeroID }, "no shape"},
		{"missing shape", func(j *Job) { j.Root = NewNodeID("ghost") }, "does not exist"},
		{"negative depth", func(j *Job) { j.Depth = -1 }, "depth"},
		{"deep", func(j *Job) { j.Depth = octree.MaxDepthLimit + 1 }, "depth"},
		{"empty bounds", func(j *Job) { j.Bounds = &inverted }, "empty"},
		{"infinite bounds", func(j *Job) { j.Bounds = &infinite }, "not finite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := buildValidScene()
			tt.edit(&s.Jobs[0])
			if errs := s.Validate(); !hasError(errs, tt.want) {
				t.Errorf("expected an error containing %q, got %v", tt.want, errs)
			}
		})
	}
}

func TestValidateDuplicateJobs(t *testing.T) {
	s := buildValidScene()
	s.AddJob(s.Jobs[0])
	errs := s.Validate()
	if !hasError(errs, "duplicate job name") {
		t.Errorf("expected a duplicate job error, got %v", errs)
	}
	for _, e := range errs {
		if e.Job != "" && !strings.Contains(e.Error(), `job "cut"`) {
			t.Errorf("Error() = %q does not name the job", e.Error())
		}
	}
}

func TestValidateOrphanWarning(t *testing.T) {
	s := buildValidScene()
	s.AddNode(&Node{ID: NewNodeID("sphere/spare"), Kind: NodePrimitive, Name: "spare", Data: SphereData{Radius: 1}})

	errs := s.Validate()
	if !hasWarning(errs, "spare") {
		t.Errorf("expected an orphan warning, got %v", errs)
	}
	if HasErrors(errs) {
		t.Errorf("orphans must not be errors: %v", errs)
	}
}
