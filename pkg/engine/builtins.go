package engine

import (
	"fmt"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/isomesh/pkg/bbox"
	"github.com/chazu/isomesh/pkg/octree"
	"github.com/chazu/isomesh/pkg/scene"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms scene script source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: rounded-box -> rounded_box
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}


// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNodeRef wraps a scene.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   scene.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(shape %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a v3.Vec.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpBounds wraps a bbox.BBox returned by `bounds` and consumed by
// `polygonize`.
type sexpBounds struct {
	box bbox.BBox
}

func (b *sexpBounds) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(bounds %s)", b.box)
}
func (b *sexpBounds) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// arg returns the keyword argument key, or else the positional argument at
// index pos (pos < 0 means keyword only).
func (a kwArgs) arg(key string, pos int) (zygo.Sexp, bool) {
	if v, ok := a.kw[key]; ok {
		return v, true
	}
	if pos >= 0 && pos < len(a.positional) {
		return a.positional[pos], true
	}
	return nil, false
}

// float returns a numeric argument, or def when it is absent.
func (a kwArgs) float(key string, pos int, def float64) (float64, error) {
	v, ok := a.arg(key, pos)
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_eager) and plain strings ("eager").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toPolicy converts a keyword or string to an octree.Policy.
func toPolicy(s zygo.Sexp) (octree.Policy, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected mode keyword (:eager, :adaptive): %w", err)
	}
	return octree.ParsePolicy(name)
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (scene.NodeID, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref.id, nil
	}
	return scene.ZeroID, fmt.Errorf("expected shape, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a v3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toBounds extracts a bbox.BBox from a sexpBounds.
func toBounds(s zygo.Sexp) (bbox.BBox, error) {
	if b, ok := s.(*sexpBounds); ok {
		return b.box, nil
	}
	return bbox.BBox{}, fmt.Errorf("expected bounds, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// shapeArgs flattens positional arguments into node IDs, splicing lists and
// arrays so (union (list a b) c) works like (union a b c).
func shapeArgs(args []zygo.Sexp) ([]scene.NodeID, error) {
	var ids []scene.NodeID
	for i, a := range args {
		if _, ok := a.(*sexpNodeRef); !ok {
			if items, err := sexpListToSlice(a); err == nil {
				nested, err := shapeArgs(items)
				if err != nil {
					return nil, err
				}
				ids = append(ids, nested...)
				continue
			}
		}
		id, err := toNodeRef(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ---------------------------------------------------------------------------
// Scene construction
// ---------------------------------------------------------------------------

// builder adds nodes and jobs to the scene of one evaluation. Anonymous node
// IDs are numbered per evaluation, so the same source always yields the same
// IDs.
type builder struct {
	s    *scene.Scene
	anon int
}

func (b *builder) nextNodeSuffix() string {
	b.anon++
	return fmt.Sprintf("_anon_%d", b.anon)
}

// add stores an anonymous node created by the builtin fn.
func (b *builder) add(fn string, kind scene.NodeKind, data scene.NodeData, children ...scene.NodeID) *sexpNodeRef {
	id := scene.NewNodeID(fn + "/" + b.nextNodeSuffix())
	b.s.AddNode(&scene.Node{ID: id, Kind: kind, Children: children, Data: data})
	return &sexpNodeRef{id: id}
}

// transform wraps the shape in positional[0] in a transform node built from
// the vector in positional[1] or the keyword key.
func (b *builder) transform(fn, key string, args []zygo.Sexp, set func(*scene.TransformData, v3.Vec)) (zygo.Sexp, error) {
	pa := parseArgs(args)
	if len(pa.positional) < 1 {
		return zygo.SexpNull, fmt.Errorf("%s requires a shape as first argument", fn)
	}
	child, err := toNodeRef(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	var vec v3.Vec
	switch {
	case len(pa.positional) == 4:
		for i, p := range []*float64{&vec.X, &vec.Y, &vec.Z} {
			if *p, err = toFloat64(pa.positional[i+1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
		}
	default:
		v, ok := pa.arg(key, 1)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("%s requires a vec3 or three numbers", fn)
		}
		if vec, err = toVec3(v); err != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %s: %w", fn, key, err)
		}
	}
	td := scene.TransformData{}
	set(&td, vec)
	return b.add(fn, scene.NodeTransform, td, child), nil
}

// boolean combines two or more shapes.
func (b *builder) boolean(fn string, op scene.BooleanOp, args []zygo.Sexp) (zygo.Sexp, error) {
	ids, err := shapeArgs(args)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
	}
	if len(ids) < 2 {
		return zygo.SexpNull, fmt.Errorf("%s requires at least 2 shapes, got %d", fn, len(ids))
	}
	return b.add(fn, scene.NodeBoolean, scene.BooleanData{Op: op}, ids...), nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all scene script builtins into a zygomys
// environment. The builtins populate s during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, s *scene.Scene) {
	b := &builder{s: s}

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}

		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat64(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}

		return &sexpVec3{vec: v3.Vec{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere 5) or (sphere :radius 5)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if _, ok := pa.arg("radius", 0); !ok {
			return zygo.SexpNull, fmt.Errorf("sphere requires a radius")
		}
		r, err := pa.float("radius", 0, 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		return b.add("sphere", scene.NodePrimitive, scene.SphereData{Radius: r}), nil
	})

	// -----------------------------------------------------------------------
	// (box 10 20 30 :round 1) or (box :size (vec3 10 20 30))
	// -----------------------------------------------------------------------
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		bd := scene.BoxData{}

		if v, ok := pa.kw["size"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("box: size: %w", err)
			}
			bd.Size = vec
		} else {
			if len(pa.positional) != 3 {
				return zygo.SexpNull, fmt.Errorf("box requires :size or 3 dimensions, got %d", len(pa.positional))
			}
			for i, p := range []*float64{&bd.Size.X, &bd.Size.Y, &bd.Size.Z} {
				f, err := toFloat64(pa.positional[i])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("box: dimension %d: %w", i+1, err)
				}
				*p = f
			}
		}
		round, err := pa.float("round", -1, 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		bd.Round = round

		return b.add("box", scene.NodePrimitive, bd), nil
	})

	// -----------------------------------------------------------------------
	// (cylinder :height 20 :radius 2 :round 0.5) or (cylinder 20 2)
	// -----------------------------------------------------------------------
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if _, ok := pa.arg("height", 0); !ok {
			return zygo.SexpNull, fmt.Errorf("cylinder requires a height")
		}
		if _, ok := pa.arg("radius", 1); !ok {
			return zygo.SexpNull, fmt.Errorf("cylinder requires a radius")
		}
		cd := scene.CylinderData{}
		var err error
		if cd.Height, err = pa.float("height", 0, 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if cd.Radius, err = pa.float("radius", 1, 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if cd.Round, err = pa.float("round", -1, 0); err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return b.add("cylinder", scene.NodePrimitive, cd), nil
	})

	// -----------------------------------------------------------------------
	// (union a b ...), (difference a b ...), (intersection a b ...)
	// -----------------------------------------------------------------------
	for fn, op := range map[string]scene.BooleanOp{
		"union":        scene.OpUnion,
		"difference":   scene.OpDifference,
		"intersection": scene.OpIntersection,
	} {
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			return b.boolean(fn, op, args)
		})
	}

	// -----------------------------------------------------------------------
	// (translate s (vec3 1 2 3)), (translate s 1 2 3), (translate s :by v)
	// -----------------------------------------------------------------------
	env.AddFunction("translate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return b.transform("translate", "by", args, func(td *scene.TransformData, v v3.Vec) {
			td.Translation = &v
		})
	})

	// -----------------------------------------------------------------------
	// (rotate s (vec3 90 0 0)) with Euler angles in degrees
	// -----------------------------------------------------------------------
	env.AddFunction("rotate", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return b.transform("rotate", "by", args, func(td *scene.TransformData, v v3.Vec) {
			td.Rotation = &v
		})
	})

	// -----------------------------------------------------------------------
	// (defshape "name" (sphere 5))
	// -----------------------------------------------------------------------
	env.AddFunction("defshape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("defshape requires a name and a body expression")
		}

		shapeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defshape: name: %w", err)
		}
		if s.Lookup(shapeName) != nil {
			return zygo.SexpNull, fmt.Errorf("defshape: shape %q already defined", shapeName)
		}
		id, err := toNodeRef(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defshape: body: %w", err)
		}

		n := s.Get(id)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("defshape: body refers to a missing shape")
		}
		if n.Name != "" {
			// Already named: alias it through an identity transform.
			id = scene.NewNodeID("defshape/" + shapeName)
			n = &scene.Node{ID: id, Kind: scene.NodeTransform, Children: []scene.NodeID{n.ID}, Data: scene.TransformData{}}
		}
		n.Name = shapeName
		s.AddNode(n)

		return &sexpNodeRef{id: id, name: shapeName}, nil
	})

	// -----------------------------------------------------------------------
	// (shape "name")
	// -----------------------------------------------------------------------
	env.AddFunction("shape", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("shape requires a name argument")
		}

		shapeName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("shape: name: %w", err)
		}

		n := s.Lookup(shapeName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("shape: no shape named %q", shapeName)
		}

		return &sexpNodeRef{id: n.ID, name: shapeName}, nil
	})

	// -----------------------------------------------------------------------
	// (bounds (vec3 -10 -10 -10) (vec3 10 10 10))
	// -----------------------------------------------------------------------
	env.AddFunction("bounds", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("bounds requires a min and a max vec3, got %d arguments", len(args))
		}
		lo, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bounds: min: %w", err)
		}
		hi, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bounds: max: %w", err)
		}
		return &sexpBounds{box: bbox.New(lo, hi)}, nil
	})

	// -----------------------------------------------------------------------
	// (polygonize (shape "ball") :name "ball" :depth 5 :mode :eager
	//             :bounds (bounds ...))
	// -----------------------------------------------------------------------
	env.AddFunction("polygonize", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("polygonize requires a shape as first argument")
		}
		root, err := toNodeRef(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polygonize: %w", err)
		}

		job := scene.Job{Root: root, Depth: scene.DefaultDepth, Policy: octree.Adaptive}
		if n := s.Get(root); n != nil {
			job.Name = n.Name
		}
		if v, ok := pa.kw["name"]; ok {
			if job.Name, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("polygonize: name: %w", err)
			}
		}
		if job.Name == "" {
			job.Name = fmt.Sprintf("job-%d", len(s.Jobs)+1)
		}
		if v, ok := pa.kw["depth"]; ok {
			d, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polygonize: depth: %w", err)
			}
			if d != float64(int(d)) {
				return zygo.SexpNull, fmt.Errorf("polygonize: depth %g is not an integer", d)
			}
			job.Depth = int(d)
		}
		if v, ok := pa.kw["mode"]; ok {
			if job.Policy, err = toPolicy(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("polygonize: mode: %w", err)
			}
		}
		if v, ok := pa.kw["bounds"]; ok {
			box, err := toBounds(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("polygonize: bounds: %w", err)
			}
			job.Bounds = &box
		}
		s.AddJob(job)

		return pa.positional[0], nil
	})
}
