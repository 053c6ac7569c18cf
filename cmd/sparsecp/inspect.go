package main

import (
	"fmt"
	"os"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/bamsammich/sparsecp/internal/platform"
)

func newExtentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extents <file>",
		Short: "Print the allocated extents of a file (FIEMAP)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			exts, ok, err := platform.MapExtents(f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "extent mapping not supported")
				return nil
			}

			var allocated int64
			merged := platform.MergeExtents(exts)
			for _, e := range merged {
				allocated += e.Len()
				fmt.Fprintf(out, "%s\t%s\n", e, units.BytesSize(float64(e.Len())))
			}
			fmt.Fprintf(out, "%d extents, %s mapped\n", len(merged), units.BytesSize(float64(allocated)))
			return nil
		},
	}
}

func newSparseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sparse <file>",
		Short: "Report whether a file looks sparse and list its data segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}
			sparse, err := platform.ProbablySparse(f)
			if err != nil {
				return err
			}
			allocated, err := platform.AllocatedBytes(f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sparse: %t\n", sparse)
			fmt.Fprintf(out, "size: %s (%d bytes)\n", units.BytesSize(float64(info.Size())), info.Size())
			fmt.Fprintf(out, "allocated: %s (%d bytes)\n", units.BytesSize(float64(allocated)), allocated)

			// Both cursors are the same descriptor; only the offsets matter.
			size := info.Size()
			for pos := int64(0); pos < size; {
				data, hole, err := platform.NextSparseSegment(f, f, pos)
				if err != nil {
					return err
				}
				if data >= size || hole <= pos {
					break
				}
				fmt.Fprintf(out, "data %s\n", platform.Extent{Start: data, End: hole})
				pos = hole
			}
			return nil
		},
	}
}
