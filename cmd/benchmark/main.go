// Command benchmark load-tests the entry graph the way signalparty's own
// cmd/benchmark load-tested its competing signal implementations: build a
// layered dependency graph of a given width/depth/fan-in, write into one
// source per iteration, read a fraction of the leaves, and report a
// percentile-bucketed update rate. Continues using tachymeter for latency
// capture and go-pretty/v6/table for the report, exactly as the teacher did,
// retargeted from reactively.Reactive[int] onto entrygraph.Wrapper[int,int].
// Flag parsing follows cmd/codegen's urfave/cli/v3 Action shape.
package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/delaneyj/entrygraph"
	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

const (
	repeatsKey        = "repeats"
	formatKey         = "format"
	onlyKey           = "only"
	widthKey          = "width"
	layersKey         = "layers"
	fanInKey          = "fan-in"
	readFractionKey   = "read-fraction"
	staticFractionKey = "static-fraction"
	iterationsKey     = "iterations"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "load-test the entry graph across a set of preset shapes",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: repeatsKey, Usage: "repeats per config, keeping the fastest", Value: 5},
			&cli.StringFlag{Name: formatKey, Usage: "report format: table, csv, or markdown", Value: "table"},
			&cli.StringFlag{Name: onlyKey, Usage: "substring filter on preset config names; empty runs every preset"},
			&cli.IntFlag{Name: widthKey, Usage: "graph width for a single custom config, overriding the presets"},
			&cli.IntFlag{Name: layersKey, Usage: "custom config layer count", Value: 5},
			&cli.IntFlag{Name: fanInKey, Usage: "custom config fan-in per node", Value: 2},
			&cli.FloatFlag{Name: readFractionKey, Usage: "custom config fraction of leaves read per iteration", Value: 1},
			&cli.FloatFlag{Name: staticFractionKey, Usage: "custom config fraction of nodes that sum every source", Value: 1},
			&cli.IntFlag{Name: iterationsKey, Usage: "custom config iteration count", Value: 1000},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	log.Print("Starting entrygraph benchmark, please wait...")
	defer log.Print("Finished entrygraph benchmark")

	cfgs := selectConfigs(cmd)
	repeats := int(cmd.Int(repeatsKey))

	tbl := table.NewWriter()
	tbl.SetTitle("Entry Graph")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"test", "size", "nSources", "read%", "static%", "nTimes", "avg", "p99", "updateRate"})

	for _, cfg := range cfgs {
		log.Printf("running %q", cfg.name)
		g := buildGraph(cfg)

		best := time.Duration(math.MaxInt64)
		var bestTach *tachymeter.Metrics
		for r := 0; r < repeats; r++ {
			tach := tachymeter.New(&tachymeter.Config{Size: int(cfg.iterations)})
			start := time.Now()
			runGraph(g, cfg, tach)
			dur := time.Since(start)
			if dur < best {
				best = dur
				calc := tach.Calc()
				bestTach = calc
			}
		}

		updateRate := float64(cfg.iterations) / (float64(best) / float64(time.Second))
		tbl.AppendRow(table.Row{
			cfg.name,
			fmt.Sprintf("%dx%d", cfg.width, cfg.totalLayers),
			cfg.nSources,
			cfg.readFraction,
			cfg.staticFraction,
			humanize.Comma(cfg.iterations),
			bestTach.Time.Avg,
			bestTach.Time.P99,
			humanize.Comma(int64(updateRate)) + "/s",
		})
	}
	renderFormat(tbl, cmd.String(formatKey))
	return nil
}

// presetConfigs is the same fixed shape table the teacher's own
// cmd/benchmark hardcoded; selectConfigs either filters it via --only
// or, when --width is set, replaces it with a single custom shape built
// entirely from flags.
func presetConfigs() []benchmarkConfig {
	return []benchmarkConfig{
		{name: "simple component", width: 10, staticFraction: 1, nSources: 2, totalLayers: 5, readFraction: 0.2, iterations: 60000},
		{name: "dynamic component", width: 10, totalLayers: 10, staticFraction: 0.75, nSources: 6, readFraction: 0.2, iterations: 8000},
		{name: "large graph", width: 200, totalLayers: 12, staticFraction: 0.95, nSources: 4, readFraction: 1, iterations: 700},
		{name: "wide dense", width: 200, totalLayers: 5, staticFraction: 1, nSources: 25, readFraction: 1, iterations: 500},
		{name: "deep", width: 5, totalLayers: 200, staticFraction: 1, nSources: 3, readFraction: 1, iterations: 200},
		{name: "very dynamic", width: 50, totalLayers: 15, staticFraction: 0.5, nSources: 6, readFraction: 1, iterations: 400},
	}
}

func selectConfigs(cmd *cli.Command) []benchmarkConfig {
	if cmd.IsSet(widthKey) {
		return []benchmarkConfig{{
			name:           "custom",
			width:          cmd.Int(widthKey),
			totalLayers:    cmd.Int(layersKey),
			nSources:       cmd.Int(fanInKey),
			readFraction:   cmd.Float(readFractionKey),
			staticFraction: cmd.Float(staticFractionKey),
			iterations:     cmd.Int(iterationsKey),
		}}
	}

	only := cmd.String(onlyKey)
	if only == "" {
		return presetConfigs()
	}
	var filtered []benchmarkConfig
	for _, cfg := range presetConfigs() {
		if strings.Contains(cfg.name, only) {
			filtered = append(filtered, cfg)
		}
	}
	return filtered
}

func renderFormat(tbl table.Writer, format string) {
	switch format {
	case "csv":
		tbl.RenderCSV()
	case "markdown":
		tbl.RenderMarkdown()
	default:
		tbl.Render()
	}
}

type benchmarkConfig struct {
	name                         string
	width, totalLayers, nSources int64
	staticFraction, readFraction float64
	iterations                   int64
}

// benchmarkGraph holds one Wrapper per layer: sourceVals backs layer 0
// directly (entrygraph has no native mutable signal; a "source" is a
// Wrapper over a backing slice, mutated then explicitly Dirty-ed), every
// later layer is a Wrapper[int, int] keyed by column index that Calls into
// the previous layer's Wrapper for each of its nSources fan-in columns.
type benchmarkGraph struct {
	sourceVals []int
	source     *entrygraph.Wrapper[int, int]
	layers     []*entrygraph.Wrapper[int, int]
}

func buildGraph(cfg benchmarkConfig) *benchmarkGraph {
	rnd := rand.New(rand.NewSource(0))
	g := &benchmarkGraph{sourceVals: make([]int, cfg.width)}
	for i := range g.sourceVals {
		g.sourceVals[i] = i
	}
	graph := entrygraph.NewGraph()
	g.source = entrygraph.Wrap(func(i int) (int, error) { return g.sourceVals[i], nil },
		entrygraph.WithGraph[int, int](graph),
		entrygraph.WithName[int, int]("source"))

	prev := g.source
	width := int(cfg.width)
	for l := int64(0); l < cfg.totalLayers-1; l++ {
		prevLayer := prev
		fanIn := buildFanIn(width, int(cfg.nSources), rnd)
		isStatic := make([]bool, width)
		for col := range isStatic {
			isStatic[col] = rnd.Float64() < cfg.staticFraction
		}
		layer := entrygraph.Wrap(func(idx int) (int, error) {
			sources := fanIn[idx]
			if isStatic[idx] || len(sources) <= 1 {
				sum := 0
				for _, s := range sources {
					v, err := prevLayer.Call(s)
					if err != nil {
						return 0, err
					}
					sum += v
				}
				return sum, nil
			}

			first, err := prevLayer.Call(sources[0])
			if err != nil {
				return 0, err
			}
			sum := first
			drop := sum&1 > 0
			dropAt := sum % (len(sources) - 1)
			for i := 1; i < len(sources); i++ {
				if drop && i-1 == dropAt {
					continue
				}
				v, err := prevLayer.Call(sources[i])
				if err != nil {
					return 0, err
				}
				sum += v
			}
			return sum, nil
		},
			entrygraph.WithGraph[int, int](graph),
			entrygraph.WithName[int, int](fmt.Sprintf("layer%d", l)))
		g.layers = append(g.layers, layer)
		prev = layer
	}
	return g
}

// buildFanIn assigns each column in a layer of the given width nSources
// upstream column indices to read from, wrapping around the row.
func buildFanIn(width, nSources int, rnd *rand.Rand) [][]int {
	fanIn := make([][]int, width)
	for col := 0; col < width; col++ {
		sources := make([]int, 0, nSources)
		for s := 0; s < nSources; s++ {
			sources = append(sources, (col+s)%width)
		}
		fanIn[col] = sources
	}
	return fanIn
}

func runGraph(g *benchmarkGraph, cfg benchmarkConfig, tach *tachymeter.Tachymeter) {
	leaf := g.source
	if len(g.layers) > 0 {
		leaf = g.layers[len(g.layers)-1]
	}
	width := int(cfg.width)
	skip := int(math.Round(float64(width) * (1 - cfg.readFraction)))
	readCols := pickColumns(width, skip, rand.New(rand.NewSource(1)))

	for i := 0; i < int(cfg.iterations); i++ {
		start := time.Now()
		srcIdx := i % len(g.sourceVals)
		g.sourceVals[srcIdx] = i + srcIdx
		g.source.Dirty(srcIdx)
		for _, col := range readCols {
			leaf.Call(col)
		}
		tach.AddTime(time.Since(start))
	}
}

func pickColumns(width, skip int, rnd *rand.Rand) []int {
	cols := make([]int, width)
	for i := range cols {
		cols[i] = i
	}
	for i := 0; i < skip && len(cols) > 0; i++ {
		d := rnd.Intn(len(cols))
		cols[d] = cols[len(cols)-1]
		cols = cols[:len(cols)-1]
	}
	return cols
}
