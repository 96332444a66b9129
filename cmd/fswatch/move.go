package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	vfs "github.com/vistta-org/fs"
)

func moveMain(_ *cobra.Command, arguments []string) error {
	return move(arguments[0], arguments[1], moveConfiguration.parents)
}

// move renames source to destination, creating the destination's parent
// directories first when parents is set.
func move(source, destination string, parents bool) error {
	if !vfs.Exists(source) {
		return errors.Errorf("%s does not exist", source)
	}
	if parents {
		if err := vfs.EnsureDir(vfs.Dirname(destination)); err != nil {
			return err
		}
	}
	if err := vfs.Move(source, destination); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s -> %s\n", source, color.GreenString(destination))
	return nil
}

var moveCommand = &cobra.Command{
	Use:   "move <source> <destination>",
	Short: "Move a file or directory, across devices if needed",
	Args:  cobra.ExactArgs(2),
	RunE:  moveMain,
}

var moveConfiguration struct {
	// parents creates missing destination directories.
	parents bool
}

func init() {
	flags := moveCommand.Flags()
	flags.SortFlags = false
	flags.BoolVar(&moveConfiguration.parents, "parents", false, "create missing parent directories")
}
