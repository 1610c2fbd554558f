// Command codegen regenerates wrapn_generated.go, continuing signalparty's
// own codegen-for-arity idiom (previously used to emit rocket/dumbdumb's
// Computed1..N from this same cmd/codegen entry point).
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/delaneyj/entrygraph/cmd/codegen/templates"
	"github.com/urfave/cli/v3"
)

const (
	countKey  = "count"
	outputKey = "output"
)

func main() {
	cmd := &cli.Command{
		Name:  "codegen",
		Usage: "generate fixed-arity WrapN helpers for the entry graph",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  countKey,
				Usage: "highest arity to generate (Wrap2..WrapN)",
				Value: 4,
			},
			&cli.StringFlag{
				Name:  outputKey,
				Usage: "output file path",
				Value: "wrapn_generated.go",
			},
		},
		Action: generate,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func generate(ctx context.Context, cmd *cli.Command) error {
	start := time.Now()
	log.Printf("codegen for wrapn started")
	defer func() {
		log.Printf("codegen for wrapn finished in %v", time.Since(start))
	}()

	count := int(cmd.Int(countKey))
	out := cmd.String(outputKey)

	src, err := templates.WrapNGen(count)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, []byte(src), 0o644); err != nil {
		return err
	}
	log.Printf("wrote %s (arities 2..%d)", out, count)
	return nil
}
