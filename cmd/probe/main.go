// Command probe loads an extraction file, lays out one page the way the
// annotator would, and resolves a click against it. It prints the display
// boxes, the hit, and any assignment the click produced.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"invoice-annotator/internal/document"
	"invoice-annotator/internal/hittest"
	"invoice-annotator/internal/selection"
	"invoice-annotator/internal/surface"
	"invoice-annotator/internal/version"
	"invoice-annotator/internal/viewport"
	"invoice-annotator/pkg/geometry"
)

type options struct {
	extraction  string
	page        int
	zoom        int
	layoutWidth float64
	x, y        float64
	arm         string
	padding     float64
	radius      float64
	boxes       bool
	showVersion bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, out io.Writer) (*options, error) {
	o := &options{}
	fs := pflag.NewFlagSet("probe", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVarP(&o.extraction, "extraction", "e", "", "Extraction JSON file")
	fs.IntVarP(&o.page, "page", "p", 0, "Page index (0-based)")
	fs.IntVarP(&o.zoom, "zoom", "z", viewport.DefaultZoom, "Zoom percent (50-200)")
	fs.Float64Var(&o.layoutWidth, "layout-width", 0, "Available container width; 0 keeps the natural size")
	fs.Float64Var(&o.x, "x", 0, "Click X in container pixels")
	fs.Float64Var(&o.y, "y", 0, "Click Y in container pixels")
	fs.StringVar(&o.arm, "arm", "", "Field to arm before clicking, e.g. vendorName")
	fs.Float64Var(&o.padding, "padding", hittest.DefaultPadding, "Hit padding in displayed pixels")
	fs.Float64Var(&o.radius, "radius", hittest.DefaultRadius, "Nearest-token radius at 100% zoom")
	fs.BoolVar(&o.boxes, "boxes", true, "Print every display box")
	fs.BoolVarP(&o.showVersion, "version", "v", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.extraction == "" && fs.NArg() > 0 {
		o.extraction = fs.Arg(0)
	}
	return o, nil
}

func run(args []string, out io.Writer) error {
	o, err := parseFlags(args, out)
	if err != nil {
		return err
	}
	if o.showVersion {
		fmt.Fprintln(out, version.Info("probe"))
		return nil
	}
	if o.extraction == "" {
		return errors.New("usage: probe --extraction <file.json> [--page 0] [--zoom 100] [--layout-width 800] --x <px> --y <px> [--arm field]")
	}
	if o.arm != "" {
		if _, ok := document.LookupField(o.arm); !ok {
			return fmt.Errorf("unknown field %q", o.arm)
		}
	}

	e, err := document.Load(o.extraction)
	if err != nil {
		return err
	}
	page, err := e.Page(o.page)
	if err != nil {
		return err
	}

	natural := geometry.NewSize(page.ImageWidth, page.ImageHeight)
	img, err := page.DecodeImage()
	if err == nil {
		b := img.Bounds()
		natural = geometry.NewSize(float64(b.Dx()), float64(b.Dy()))
	} else if !errors.Is(err, document.ErrNoPreview) {
		return err
	}
	intrinsic := page.IntrinsicSize(img)

	fmt.Fprintf(out, "Loaded %s\n", e)
	fmt.Fprintf(out, "Page %d: %d tokens, intrinsic %.0fx%.0f, natural %.0fx%.0f\n",
		o.page, len(page.Tokens), intrinsic.Width, intrinsic.Height, natural.Width, natural.Height)

	var values []selection.ValueSelection
	machine := selection.NewMachine(selection.Callbacks{
		OnValueSelect: func(v selection.ValueSelection) { values = append(values, v) },
	})
	surf := surface.New(machine, hittest.Options{Padding: o.padding, Radius: o.radius})
	fields := e.FieldBoxes(o.page)
	surf.SetPage(page, fields, intrinsic)
	surf.SetLayout(viewport.FitLayout(natural, o.layoutWidth), geometry.Point2D{})
	zoom := surf.SetZoom(o.zoom)

	vp := surf.Viewport()
	d := vp.Displayed()
	fmt.Fprintf(out, "Layout %.0fx%.0f at %d%% -> displayed %.1fx%.1f\n",
		vp.Layout.Width, vp.Layout.Height, zoom, d.Width, d.Height)
	if !vp.Ready() {
		return errors.New("page has no usable size; nothing can be hit")
	}

	if o.boxes {
		printBoxes(out, page, fields, vp)
	}

	if o.arm != "" {
		machine.Arm(o.arm)
		fmt.Fprintf(out, "\nArmed %s\n", o.arm)
	}

	res := surf.Click(geometry.NewPoint2D(o.x, o.y))
	fmt.Fprintf(out, "\nClick (%.1f, %.1f) -> intrinsic (%.1f, %.1f) = (%.2f%%, %.2f%%)\n",
		o.x, o.y, res.Intrinsic.Point.X, res.Intrinsic.Point.Y,
		res.Intrinsic.Percent.X, res.Intrinsic.Percent.Y)
	switch res.Target {
	case surface.TargetToken:
		fmt.Fprintf(out, "Hit token %d %q (%s, distance %.1f)\n",
			res.Hit.Index, page.Tokens[res.Hit.Index].Text, res.Hit.Kind, res.Hit.Distance)
	case surface.TargetField:
		fmt.Fprintf(out, "Hit field box %s (%s)\n", res.Field, res.Hit.Kind)
	default:
		fmt.Fprintln(out, "Hit nothing")
	}

	for _, v := range values {
		fmt.Fprintf(out, "Assign %s: %s %q\n", v.Field, v.Kind, v.Text)
		if p := v.Position; p != nil {
			fmt.Fprintf(out, "  position x=%.1f y=%.1f line=%d/%d char=%.2f%% line=%.2f%%\n",
				p.X, p.Y, p.LineNumber, p.TotalLines, p.CharPercent, p.LinePercent)
		}
	}
	return nil
}

func printBoxes(out io.Writer, page document.Page, fields []document.FieldBox, vp viewport.State) {
	fmt.Fprintf(out, "\n%-6s %-24s %10s %10s %10s %10s\n", "Token", "Text", "X", "Y", "W", "H")
	for i, t := range hittest.TokenTargets(page.Tokens, vp) {
		if !t.Valid {
			fmt.Fprintf(out, "%-6d %-24s %10s\n", i, truncate(page.Tokens[i].Text, 24), "(not hittable)")
			continue
		}
		fmt.Fprintf(out, "%-6d %-24s %10.1f %10.1f %10.1f %10.1f\n",
			i, truncate(page.Tokens[i].Text, 24), t.Box.X, t.Box.Y, t.Box.Width, t.Box.Height)
	}
	if len(fields) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%-16s %-14s %10s %10s %10s %10s\n", "Field", "Value", "X", "Y", "W", "H")
	for i, t := range hittest.FieldTargets(fields, vp) {
		if !t.Valid {
			continue
		}
		fmt.Fprintf(out, "%-16s %-14s %10.1f %10.1f %10.1f %10.1f\n",
			fields[i].Key, truncate(fields[i].Value, 14), t.Box.X, t.Box.Y, t.Box.Width, t.Box.Height)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "~"
}
