// Copyright © 2018 One Concern

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/oneconcern/chunkfs/pkg/bench"
)

var writeReadCmd = &cobra.Command{
	Use:   "write-read",
	Short: "Write a generated dataset through the pipeline and read it back",
	Long: `Write a generated dataset to the file system, close it, read it back and
verify the round trip, then report dedup figures. With --scrub, a scrub
pass runs between the write and the read.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runWriteRead(cmd); err != nil {
			fmt.Fprintln(os.Stderr, err)
			osExit(1)
		}
	},
}

func runWriteRead(cmd *cobra.Command) error {
	ctx := context.Background()

	size, err := cmd.Flags().GetString("size")
	if err != nil {
		return err
	}
	nBytes, err := units.RAMInBytes(size)
	if err != nil {
		return fmt.Errorf("invalid size %q: %v", size, err)
	}
	seed, err := cmd.Flags().GetInt64("seed")
	if err != nil {
		return err
	}
	withScrub, err := cmd.Flags().GetBool("scrub")
	if err != nil {
		return err
	}

	fs, err := newFileSystem(withScrub)
	if err != nil {
		return err
	}
	mkChunker, err := newChunker()
	if err != nil {
		return err
	}

	data := bench.Seeded{Seed: seed}.Generate(int(nBytes))

	h, err := fs.CreateFile(ctx, "write-read", mkChunker(), false)
	if err != nil {
		return err
	}
	if err = fs.WriteToFile(ctx, h, data); err != nil {
		return err
	}
	m, err := fs.CloseFile(ctx, h)
	if err != nil {
		return err
	}

	if withScrub {
		sm, err := fs.Scrub(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("scrub: examined %s, moved %s in %v\n",
			units.HumanSize(float64(sm.BytesExamined)),
			units.HumanSize(float64(sm.BytesMoved)),
			sm.RunningTime,
		)
	}

	rh, err := fs.OpenFile(ctx, "write-read")
	if err != nil {
		return err
	}
	got, err := fs.ReadFromFile(ctx, rh)
	if err != nil {
		return err
	}
	if !bytes.Equal(data, got) {
		return fmt.Errorf("round trip mismatch: wrote %d bytes, read %d", len(data), len(got))
	}

	fmt.Printf("wrote and read back %s in %d chunks\n", units.HumanSize(float64(nBytes)), m.Write.ChunksProduced)
	fmt.Printf("dedup ratio: %.3f, avg chunk size: %s\n", fs.CDCDedupRatio(), units.HumanSize(float64(fs.AverageChunkSize())))
	return nil
}

func init() {
	rootCmd.AddCommand(writeReadCmd)

	writeReadCmd.Flags().String("size", "1MB", "dataset size (accepts units, e.g. 10MB)")
	writeReadCmd.Flags().Int64("seed", 42, "dataset random seed")
	writeReadCmd.Flags().Bool("scrub", false, "run a scrub pass between write and read")
}
