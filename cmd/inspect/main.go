// Command inspect runs a small entry-graph pipeline and reports per-wrapper
// cache occupancy and dirtyChildren set-pool hit/miss counters, in the
// tablewriter report style signalparty's own cmd/benchmark_reactively used
// for its results table (plain tablewriter.NewWriter, SetHeader, Append,
// Render), retargeted from a benchmark result table onto a live graph's
// Wrapper instances. Flag parsing follows cmd/codegen's urfave/cli/v3
// Action shape.
package main

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/delaneyj/entrygraph"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const (
	pathsKey  = "paths"
	maxKey    = "max"
	formatKey = "format"
	borderKey = "border"
)

func main() {
	cmd := &cli.Command{
		Name:  "inspect",
		Usage: "run a two-layer read/hash pipeline and report cache occupancy",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: pathsKey, Usage: "comma-separated file set to hash", Value: "a.js,b.js,c.js"},
			&cli.IntFlag{Name: maxKey, Usage: "LRU max for both wrappers", Value: int64(entrygraph.DefaultMax)},
			&cli.StringFlag{Name: formatKey, Usage: "report format: table or csv", Value: "table"},
			&cli.BoolFlag{Name: borderKey, Usage: "draw a table border (table format only)", Value: true},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	log.Print("building a two-layer read/hash pipeline")

	fileSet := strings.Split(cmd.String(pathsKey), ",")
	max := int(cmd.Int(maxKey))

	files := map[string]string{
		"a.js": "alpha",
		"b.js": "beta",
		"c.js": "gamma",
	}
	reads := 0
	read := entrygraph.Wrap(func(path string) (string, error) {
		reads++
		return files[path], nil
	}, entrygraph.WithName[string, string]("read"), entrygraph.WithMax[string, string](max))

	hashes := 0
	hash := entrygraph.Wrap(func(paths []string) (string, error) {
		hashes++
		h := sha1.New()
		for _, p := range paths {
			content, err := read.Call(p)
			if err != nil {
				return "", err
			}
			h.Write([]byte(content))
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}, entrygraph.WithKeyArgs[[]string, string](func(paths []string) []any {
		keyArgs := make([]any, len(paths))
		for i, p := range paths {
			keyArgs[i] = p
		}
		return keyArgs
	}), entrygraph.WithName[[]string, string]("hash"), entrygraph.WithMax[[]string, string](max))

	digest, err := hash.Call(fileSet)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("initial digest: %s (reads=%d hashes=%d)", digest, reads, hashes)

	digest2, _ := hash.Call(fileSet)
	log.Printf("cache-hit digest: %s (reads=%d hashes=%d)", digest2, reads, hashes)

	files[fileSet[0]] = "CHANGED"
	digest3, _ := hash.Call(fileSet)
	log.Printf("stale read, unchanged digest: %s (reads=%d hashes=%d)", digest3, reads, hashes)

	read.Dirty(fileSet[0])
	digest4, _ := hash.Call(fileSet)
	log.Printf("post-dirty digest: %s (reads=%d hashes=%d)", digest4, reads, hashes)

	render(read, hash, reads, hashes, cmd.String(formatKey), cmd.Bool(borderKey))
	return nil
}

type sizeReporter interface {
	Size() int
	PoolStats() entrygraph.PoolStats
}

func render(read *entrygraph.Wrapper[string, string], hash *entrygraph.Wrapper[[]string, string], reads, hashes int, format string, border bool) {
	header := []string{"wrapper", "entries", "fn calls", "pool hits", "pool misses"}
	rows := []struct {
		name  string
		w     sizeReporter
		calls int
	}{
		{"read", read, reads},
		{"hash", hash, hashes},
	}

	if format == "csv" {
		fmt.Println(strings.Join(header, ","))
		for _, r := range rows {
			stats := r.w.PoolStats()
			fmt.Println(strings.Join([]string{
				r.name,
				fmt.Sprint(r.w.Size()),
				fmt.Sprint(r.calls),
				fmt.Sprint(stats.Hits),
				fmt.Sprint(stats.Misses),
			}, ","))
		}
		return
	}

	tbl := tablewriter.NewWriter(os.Stdout)
	tbl.SetHeader(header)
	tbl.SetBorder(border)
	for _, r := range rows {
		stats := r.w.PoolStats()
		tbl.Append([]string{
			r.name,
			humanize.Comma(int64(r.w.Size())),
			humanize.Comma(int64(r.calls)),
			humanize.Comma(int64(stats.Hits)),
			humanize.Comma(int64(stats.Misses)),
		})
	}
	tbl.Render()
	fmt.Println()
}
