// runplot renders a recorded line follower run to PNG: commands in one file, marking
// columns against the target in another.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"linefollow/internal/telemetry"
)

var palette = []color.RGBA{
	{200, 160, 0, 255},
	{120, 0, 160, 255},
	{0, 120, 200, 255},
	{0, 150, 0, 255},
}

func main() {
	dbPath := flag.String("db", "", "telemetry sqlite file")
	runID := flag.String("run", "", "run id, defaults to the latest run")
	out := flag.String("out", "run.png", "output file, a _columns suffix is added for the column plot")
	flag.Parse()

	if err := realMain(*dbPath, *runID, *out); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func realMain(dbPath, runID, out string) error {
	if dbPath == "" {
		return fmt.Errorf("need -db")
	}
	ctx := context.Background()

	db, err := telemetry.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if runID == "" {
		runs, err := db.Runs(ctx)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			return fmt.Errorf("no runs in %s", dbPath)
		}
		runID = runs[len(runs)-1].ID
	}

	ticks, err := db.Ticks(ctx, runID)
	if err != nil {
		return err
	}
	if len(ticks) == 0 {
		return fmt.Errorf("run %s has no ticks", runID)
	}
	fmt.Printf("run %s: %d ticks\n", runID, len(ticks))

	if err := plotCommands(ticks, runID, out); err != nil {
		return err
	}

	ext := filepath.Ext(out)
	return plotColumns(ticks, runID, strings.TrimSuffix(out, ext)+"_columns"+ext)
}

func plotCommands(ticks []telemetry.Tick, runID, file string) error {
	p := plot.New()
	p.Title.Text = "run " + runID
	p.X.Label.Text = "tick"
	p.Y.Label.Text = "command"

	steering := make(plotter.XYs, len(ticks))
	throttle := make(plotter.XYs, len(ticks))
	for i, t := range ticks {
		steering[i] = plotter.XY{X: float64(t.Tick), Y: t.Steering}
		throttle[i] = plotter.XY{X: float64(t.Tick), Y: t.Throttle}
	}

	steeringLine, err := plotter.NewLine(steering)
	if err != nil {
		return err
	}
	steeringLine.Color = color.RGBA{0, 0, 200, 255}
	steeringLine.Width = vg.Points(1)

	throttleLine, err := plotter.NewLine(throttle)
	if err != nil {
		return err
	}
	throttleLine.Color = color.RGBA{200, 0, 0, 255}
	throttleLine.Width = vg.Points(1)

	p.Add(plotter.NewGrid(), steeringLine, throttleLine)
	p.Legend.Add("steering", steeringLine)
	p.Legend.Add("throttle", throttleLine)

	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", file)
	return nil
}

func plotColumns(ticks []telemetry.Tick, runID, file string) error {
	p := plot.New()
	p.Title.Text = "run " + runID + " columns"
	p.X.Label.Text = "tick"
	p.Y.Label.Text = "pixel"

	var target plotter.XYs
	series := map[string]plotter.XYs{}
	for _, t := range ticks {
		if t.Target != telemetry.Unusable {
			target = append(target, plotter.XY{X: float64(t.Tick), Y: float64(t.Target)})
		}
		for label, col := range t.Columns {
			if col == telemetry.Unusable {
				continue
			}
			series[label] = append(series[label], plotter.XY{X: float64(t.Tick), Y: float64(col)})
		}
	}

	p.Add(plotter.NewGrid())
	if len(target) > 0 {
		l, err := plotter.NewLine(target)
		if err != nil {
			return err
		}
		l.Width = vg.Points(1)
		p.Add(l)
		p.Legend.Add("target", l)
	}

	labels := make([]string, 0, len(series))
	for label := range series {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for i, label := range labels {
		s, err := plotter.NewScatter(series[label])
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = palette[i%len(palette)]
		s.GlyphStyle.Radius = vg.Points(1.5)
		p.Add(s)
		p.Legend.Add(label, s)
	}

	if err := p.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", file)
	return nil
}
