package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	vfs "github.com/vistta-org/fs"
)

func statMain(_ *cobra.Command, arguments []string) error {
	return printStats(os.Stdout, arguments)
}

// printStats writes kind, size, age and file id of each path.
func printStats(w io.Writer, paths []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	var missing int
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(tw, "%s\t%s\n", path, color.RedString("missing"))
			missing++
			continue
		}

		kind := "other"
		switch {
		case vfs.IsDirectory(path):
			kind = "directory"
		case vfs.IsFile(path):
			kind = "file"
		}
		id, err := vfs.FileID(path)
		if err != nil {
			id = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			path,
			color.CyanString(kind),
			humanize.Bytes(uint64(info.Size())),
			humanize.Time(info.ModTime()),
			id,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if missing > 0 {
		return errors.Errorf("%d of %d paths do not exist", missing, len(paths))
	}
	return nil
}

var statCommand = &cobra.Command{
	Use:   "stat <path>...",
	Short: "Show kind, size and file id of paths",
	Args:  cobra.MinimumNArgs(1),
	RunE:  statMain,
}
