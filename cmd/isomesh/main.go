// Command isomesh extracts triangle meshes from implicit surfaces.
//
// With -scene it evaluates a scene script and meshes every polygonize job in
// it. With -demo it polygonizes a sphere of radius 5 using the pipeline
// configuration. The result is written as JSON.
//
//	isomesh -demo -depth 4 -mode eager -out sphere.json
//	isomesh -scene examples/drilled_ball.scene -workers 4 -timeout 10s
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/chazu/isomesh/pkg/engine"
	"github.com/chazu/isomesh/pkg/polygonize"
)

// options holds the command line flags.
type options struct {
	scene   string
	demo    bool
	config  string
	depth   int
	mode    string
	workers int
	timeout time.Duration
	out     string
}

// bindFlags registers the command line flags on fs.
func bindFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVar(&o.scene, "scene", "", "scene script to evaluate")
	fs.BoolVar(&o.demo, "demo", false, "polygonize the built-in sphere instead of a scene")
	fs.StringVar(&o.config, "config", "", "YAML pipeline configuration")
	fs.IntVar(&o.depth, "depth", 0, "octree depth for -demo (overrides the config)")
	fs.StringVar(&o.mode, "mode", "", "subdivision mode for -demo: eager or adaptive (overrides the config)")
	fs.IntVar(&o.workers, "workers", 0, "extraction workers (overrides the config)")
	fs.DurationVar(&o.timeout, "timeout", engine.DefaultTimeout, "limit for evaluating a scene script (0 disables it)")
	fs.StringVar(&o.out, "out", "", "output file (default stdout)")
	return o
}

// pipelineConfig loads the configuration file, if any, and overlays the
// flags that were set explicitly.
func pipelineConfig(o *options, set map[string]bool) (polygonize.Config, error) {
	cfg := polygonize.DefaultConfig()
	if o.config != "" {
		var err error
		if cfg, err = polygonize.LoadConfig(o.config); err != nil {
			return cfg, err
		}
	}
	if set["depth"] {
		cfg.Depth = o.depth
	}
	if set["mode"] {
		cfg.Mode = o.mode
	}
	if set["workers"] {
		cfg.Workers = o.workers
	}
	return cfg, cfg.Validate()
}

// run executes one invocation and writes the JSON result to w.
func run(ctx context.Context, o *options, set map[string]bool, w io.Writer) error {
	if o.demo == (o.scene != "") {
		return errors.New("exactly one of -scene and -demo is required")
	}
	cfg, err := pipelineConfig(o, set)
	if err != nil {
		return err
	}

	app := NewApp(cfg.Workers, engine.WithTimeout(o.timeout))
	var result EvalResult
	if o.demo {
		result = app.Demo(ctx, cfg)
	} else {
		source, err := os.ReadFile(o.scene)
		if err != nil {
			return fmt.Errorf("reading scene: %w", err)
		}
		result = app.EvaluateContext(ctx, string(source))
	}
	for _, m := range result.Meshes {
		glog.Infof("%s: %d vertices, %d triangles", m.PartName, len(m.Vertices)/3, len(m.Indices)/3)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d error(s), first: %s", len(result.Errors), result.Errors[0].Message)
	}
	return nil
}

func main() {
	o := bindFlags(flag.CommandLine)
	flag.Parse()
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	os.Exit(realMain(context.Background(), o, set, os.Stdout))
}

// realMain runs one invocation and returns the process exit code. Deferred
// cleanup, including closing -out and flushing the log, happens before it
// returns.
func realMain(ctx context.Context, o *options, set map[string]bool, stdout io.Writer) (code int) {
	defer glog.Flush()

	w := stdout
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			glog.Errorf("creating output: %v", err)
			return 1
		}
		defer func() {
			if err := f.Close(); err != nil {
				glog.Errorf("closing output: %v", err)
				code = 1
			}
		}()
		w = f
	}

	if err := run(ctx, o, set, w); err != nil {
		glog.Errorf("isomesh: %v", err)
		return 1
	}
	return 0
}
