// Command jam-accumulate runs an accumulation test vector against the
// engine and prints the resulting statistics, in the spirit of the
// teacher's cmd/gtos misccmd.go version/license-style utility commands.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jamaccumulate/accumulator/testvectors"
)

var gitCommit = ""

var runCommand = &cli.Command{
	Action:    runVector,
	Name:      "run",
	Usage:     "Execute an accumulation test-vector file against the engine",
	ArgsUsage: "<vector.json>",
}

var versionCommand = &cli.Command{
	Action:    runVersion,
	Name:      "version",
	Usage:     "Print version information",
	ArgsUsage: " ",
}

func runVector(ctx *cli.Context) error {
	if ctx.Args().Len() != 1 {
		return fmt.Errorf("usage: jam-accumulate run <vector.json>")
	}
	path := ctx.Args().First()

	vec, err := testvectors.Load(path)
	if err != nil {
		return err
	}
	result, err := testvectors.Run(vec)
	if err != nil {
		return err
	}

	fmt.Printf("accumulated_count: %d\n", result.AccumulatedCount)
	fmt.Printf("accumulate_root:   %s\n", hex.EncodeToString(result.AccumulateRoot[:]))
	fmt.Printf("invoked_services:  %v\n", result.InvokedServices)
	for sid, stats := range result.GasUsedPerService {
		fmt.Printf("  service %d: gas_used=%d accumulated_count=%d\n", sid, stats.GasUsed, stats.AccumulatedCount)
	}
	return nil
}

func runVersion(_ *cli.Context) error {
	fmt.Println("jam-accumulate")
	if gitCommit != "" {
		fmt.Println("Git Commit:", gitCommit)
	}
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "jam-accumulate"
	app.Usage = "accumulation-engine reference runner"
	app.Commands = []*cli.Command{
		runCommand,
		versionCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
