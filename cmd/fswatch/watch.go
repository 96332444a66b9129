package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vistta-org/fs/internal/handler"
	"github.com/vistta-org/fs/internal/watcher"
)

// change is one changed path reported by a root.
type change struct {
	alias string
	path  string
}

func watchMain(command *cobra.Command, arguments []string) error {
	cfg, logger, err := loadConfiguration(command)
	if err != nil {
		return err
	}

	// Positional paths replace configured roots.
	if len(arguments) > 0 {
		cfg.Roots = nil
		for _, path := range arguments {
			if err := cfg.AddRoot(path, "", "", ""); err != nil {
				return err
			}
		}
	}
	if len(cfg.Roots) == 0 {
		return errors.New("no roots to watch")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	changes := make(chan change)
	var wg sync.WaitGroup
	for _, r := range cfg.Roots {
		m, err := handler.OpenMount(cfg, r, logger)
		if err != nil {
			return errors.Wrapf(err, "unable to open root %s", r.Alias)
		}
		defer m.Close()

		session := watcher.New(m.Storage, m.Resolver).Watch(ctx, m.Base, watchOptions(cfg, r, logger, nil))
		defer session.Close()
		logger.Info("watching", "root", r.Alias, "path", r.Path, "tracked", len(session.Tracked()))

		wg.Add(1)
		go func(alias string) {
			defer wg.Done()
			for path := range session.Paths(ctx) {
				select {
				case changes <- change{alias: alias, path: path}:
				case <-ctx.Done():
					return
				}
			}
		}(r.Alias)
	}
	go func() {
		wg.Wait()
		close(changes)
	}()

	return printChanges(ctx, os.Stdout, changes, len(cfg.Roots) > 1, watchConfiguration.count)
}

// printChanges writes each change on its own line until changes is closed,
// ctx is done or limit changes were printed. A zero limit means no limit.
func printChanges(ctx context.Context, w io.Writer, changes <-chan change, showRoot bool, limit int) error {
	printed := 0
	for {
		select {
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			stamp := color.New(color.Faint).Sprint(time.Now().Format(time.TimeOnly))
			if showRoot {
				fmt.Fprintf(w, "%s %s %s\n", stamp, color.CyanString(c.alias), color.GreenString(c.path))
			} else {
				fmt.Fprintf(w, "%s %s\n", stamp, color.GreenString(c.path))
			}
			printed++
			if limit > 0 && printed >= limit {
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

var watchCommand = &cobra.Command{
	Use:   "watch [<path>...]",
	Short: "Print changed file paths until interrupted",
	RunE:  watchMain,
}

var watchConfiguration struct {
	// count stops the command after this many changes.
	count int
}

func init() {
	flags := watchCommand.Flags()
	flags.SortFlags = false
	flags.IntVarP(&watchConfiguration.count, "count", "n", 0, "exit after this many changes")
}
