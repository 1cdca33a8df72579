// aidetect-scan scores files or stdin with the heuristic estimators and prints one line per result
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"aidetect/internal/adapters/structure"
	"aidetect/internal/core/geometry"
	"aidetect/internal/core/heuristic"
	"aidetect/internal/platform/logger"
	"aidetect/internal/services/api/score/service"

	"golang.org/x/sync/errgroup"
)

// Result is one scored input; HTML inputs yield one per structural region
type Result struct {
	Input    string           `json:"input"`
	Kind     string           `json:"kind"`
	Variant  string           `json:"variant,omitempty"`
	Region   *geometry.Region `json:"region,omitempty"`
	Admitted bool             `json:"admitted"`
	Score    float64          `json:"score"`
	Label    string           `json:"label"`
	Script   string           `json:"script,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type options struct {
	variant string
	kind    string
	asJSON  bool
	workers int
	width   float64
	height  float64
}

var imageExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("aidetect-scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o options
	fs.StringVar(&o.variant, "variant", "structural", "text estimator: structural | coarse")
	fs.StringVar(&o.kind, "kind", "auto", "input kind: auto | text | image | html")
	fs.BoolVar(&o.asJSON, "json", false, "print one JSON object per line")
	fs.IntVar(&o.workers, "workers", 4, "files scored concurrently")
	fs.Float64Var(&o.width, "width", 1280, "viewport width for html layout")
	fs.Float64Var(&o.height, "height", 720, "viewport height for html layout")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if _, err := service.ParseVariant(o.variant); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	switch o.kind {
	case "auto", "text", "image", "html":
	default:
		fmt.Fprintf(stderr, "bad -kind %q\n", o.kind)
		return 2
	}

	inputs := fs.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	svc := service.New()
	out := make([][]Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(o.workers, 1))
	for i, in := range inputs {
		g.Go(func() error {
			out[i] = scanOne(gctx, svc, o, in, stdin)
			return nil
		})
	}
	_ = g.Wait()

	failed := false
	enc := json.NewEncoder(stdout)
	for _, rs := range out {
		for _, r := range rs {
			if r.Error != "" {
				failed = true
			}
			if o.asJSON {
				_ = enc.Encode(r)
				continue
			}
			printLine(stdout, r)
		}
	}
	if failed {
		return 1
	}
	return 0
}

func scanOne(ctx context.Context, svc *service.Service, o options, in string, stdin io.Reader) []Result {
	log := logger.C(ctx).With().Str("input", in).Logger()

	var (
		b   []byte
		err error
	)
	if in == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(in)
	}
	if err != nil {
		return []Result{{Input: in, Kind: o.kind, Error: err.Error()}}
	}

	kind := o.kind
	if kind == "auto" {
		kind = detectKind(in)
	}
	log.Debug().Str("kind", kind).Int("bytes", len(b)).Msg("scanning")

	switch kind {
	case "image":
		res, err := svc.Image(ctx, bytes.NewReader(b))
		if err != nil {
			return []Result{{Input: in, Kind: kind, Error: err.Error()}}
		}
		return []Result{{Input: in, Kind: kind, Admitted: true, Score: res.Score, Label: string(res.Label)}}
	case "html":
		snap, err := structure.ParseHTML(bytes.NewReader(b), geometry.Size{W: o.width, H: o.height}, structure.DefaultFlow)
		if err != nil {
			return []Result{{Input: in, Kind: kind, Error: err.Error()}}
		}
		rs := make([]Result, 0, len(snap.Candidates))
		for _, c := range snap.Candidates {
			res, err := svc.Text(ctx, o.variant, c.Text)
			if err != nil {
				return []Result{{Input: in, Kind: kind, Error: err.Error()}}
			}
			region := c.Region
			rs = append(rs, textResult(in, kind, res, &region))
		}
		return rs
	default:
		res, err := svc.Text(ctx, o.variant, string(b))
		if err != nil {
			return []Result{{Input: in, Kind: "text", Error: err.Error()}}
		}
		return []Result{textResult(in, "text", res, nil)}
	}
}

func textResult(in, kind string, res service.TextResult, region *geometry.Region) Result {
	return Result{
		Input:    in,
		Kind:     kind,
		Variant:  string(res.Variant),
		Region:   region,
		Admitted: res.Admitted,
		Score:    res.Score,
		Label:    string(res.Label),
		Script:   res.Hint.Script,
	}
}

func detectKind(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExt[ext]:
		return "image"
	case ext == ".html" || ext == ".htm":
		return "html"
	}
	return "text"
}

func printLine(w io.Writer, r Result) {
	if r.Error != "" {
		fmt.Fprintf(w, "%s\terror\t%s\n", r.Input, r.Error)
		return
	}
	label := r.Label
	if !r.Admitted {
		label = "skipped"
	}
	where := ""
	if r.Region != nil {
		where = fmt.Sprintf("\t@%.0f,%.0f %.0fx%.0f", r.Region.X, r.Region.Y, r.Region.W, r.Region.H)
	}
	fmt.Fprintf(w, "%s\t%s\t%.2f%s\n", r.Input, label, r.Score, where)
}
