// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/oneconcern/chunkfs/pkg/bench"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the benchmark datasets and append results to a CSV report",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runBench(cmd); err != nil {
			fmt.Fprintln(os.Stderr, err)
			osExit(1)
		}
	},
}

func runBench(cmd *cobra.Command) error {
	ctx := context.Background()

	size, err := cmd.Flags().GetString("size")
	if err != nil {
		return err
	}
	nBytes, err := units.RAMInBytes(size)
	if err != nil {
		return fmt.Errorf("invalid size %q: %v", size, err)
	}
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}

	datasets := []bench.Dataset{
		{Name: "const", Size: int(nBytes), Gen: bench.Const{Value: 10}},
		{Name: "random", Size: int(nBytes), Gen: bench.Seeded{Seed: 42}},
		{Name: "dedup-50", Size: int(nBytes), Gen: bench.Dedup{Percentage: 50, Seed: 42}},
	}

	mkChunker, err := newChunker()
	if err != nil {
		return err
	}

	for _, ds := range datasets {
		// a fresh file system per dataset keeps dedup figures comparable
		fs, err := newFileSystem(false)
		if err != nil {
			return err
		}

		r, err := bench.Run(ctx, fs, ds, mkChunker)
		if err != nil {
			return err
		}
		r.Print(os.Stdout)

		if out != "" {
			if err := r.AppendCSV(out); err != nil {
				return err
			}
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().String("size", "10MB", "dataset size (accepts units, e.g. 100MB)")
	benchCmd.Flags().String("out", "", "CSV report path (appends; empty disables)")
}
