package main

import (
	"context"

	"github.com/golang/glog"

	"github.com/chazu/isomesh/pkg/engine"
	"github.com/chazu/isomesh/pkg/implicit"
	"github.com/chazu/isomesh/pkg/kernel"
	"github.com/chazu/isomesh/pkg/kernel/sdfx"
	"github.com/chazu/isomesh/pkg/mesh"
	"github.com/chazu/isomesh/pkg/polygonize"
	"github.com/chazu/isomesh/pkg/tessellate"
)

// colorPalette is a default palette used to assign distinct colors to meshes.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App evaluates scene scripts and meshes them.
type App struct {
	engine  *engine.Engine
	kernel  kernel.Kernel
	workers int
}

// MeshData is the JSON-serializable mesh format written by the CLI.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// StatsData reports the size of a polygonization run.
type StatsData struct {
	Nodes     int   `json:"nodes"`
	Leaves    int   `json:"leaves"`
	Triangles int   `json:"triangles"`
	BuildUS   int64 `json:"buildMicros"`
	ExtractUS int64 `json:"extractMicros"`
}

// EvalResult is the full result written by the CLI.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
	Stats    *StatsData      `json:"stats,omitempty"`
}

// NewApp creates a new App with an engine configured by opts and the sdfx
// kernel.
func NewApp(workers int, opts ...engine.Option) *App {
	return &App{
		engine:  engine.NewEngine(opts...),
		kernel:  sdfx.New(),
		workers: workers,
	}
}

func newResult() EvalResult {
	return EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}
}

func (r *EvalResult) fail(msg string) {
	r.Errors = append(r.Errors, EvalErrorData{Message: msg})
}

func (r *EvalResult) addMesh(m *mesh.Polymesh) {
	r.Meshes = append(r.Meshes, MeshData{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		PartName: m.PartName,
		Color:    colorPalette[len(r.Meshes)%len(colorPalette)],
	})
}

// Evaluate is EvaluateContext with a background context.
func (a *App) Evaluate(source string) EvalResult {
	return a.EvaluateContext(context.Background(), source)
}

// EvaluateContext takes scene script source and returns mesh data + errors.
// Cancelling ctx abandons script evaluation.
func (a *App) EvaluateContext(ctx context.Context, source string) EvalResult {
	result := newResult()

	// Step 1: Evaluate the source into a scene and check it.
	res, err := a.engine.RunContext(ctx, source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		glog.Errorf("Evaluate fatal error: %v", err)
		result.fail(err.Error())
		return result
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Line: w.Line, Col: w.Col, Message: w.Message})
	}

	// Step 2: Convert eval errors to the output format.
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}

	// Step 3: Tessellate the scene into triangle meshes.
	meshes, err := tessellate.Tessellate(res.Scene, a.kernel, tessellate.WithWorkers(a.workers))
	if err != nil {
		glog.Errorf("Tessellate error: %v", err)
		result.fail("tessellation failed: " + err.Error())
		return result
	}

	// Step 4: Convert meshes to the output format.
	for _, m := range meshes {
		result.addMesh(m)
	}

	return result
}

// Demo polygonizes a sphere of radius 5 about the origin with cfg.
func (a *App) Demo(ctx context.Context, cfg polygonize.Config) EvalResult {
	result := newResult()

	soup, stats, err := polygonize.RunWithStats(ctx, implicit.Sphere{Radius: 5}, cfg)
	if err != nil {
		glog.Errorf("Demo error: %v", err)
		result.fail(err.Error())
		return result
	}

	m := mesh.Weld(soup, 0)
	m.PartName = "sphere"
	result.addMesh(m)
	result.Stats = &StatsData{
		Nodes:     stats.Nodes,
		Leaves:    stats.Leaves,
		Triangles: stats.Triangles,
		BuildUS:   stats.Build.Microseconds(),
		ExtractUS: stats.Extract.Microseconds(),
	}
	return result
}
