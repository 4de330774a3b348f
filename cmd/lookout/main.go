package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grovetools/lookout/cli"
	"github.com/grovetools/lookout/config"
	"github.com/grovetools/lookout/itemlist"
	"github.com/grovetools/lookout/observer"
	"github.com/grovetools/lookout/version"
)

func main() {
	root := cli.NewStandardCommand("lookout", "Watch a directory and stream sorted-list changes")
	v := version.GetInfo()
	info := cli.VersionInfo{
		Version:   v.Version,
		Commit:    v.Commit,
		BuildDate: v.BuildDate,
		BuildArch: v.Platform,
	}
	root.Version = v.Version
	cli.SetVersionTemplate(root, info)
	root.AddCommand(cli.NewVersionCommand("lookout", info))
	root.AddCommand(newWatchCmd())
	root.AddCommand(newListCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// observerConfig merges the "observer" section of lookout.yml with command
// flags; flags win.
func observerConfig(cmd *cobra.Command) (observer.Config, error) {
	var obsCfg observer.Config

	opts := cli.GetOptions(cmd)
	var cfg *config.Config
	var err error
	if opts.ConfigFile != "" {
		cfg, err = config.Load(opts.ConfigFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return obsCfg, err
	}
	if err := cfg.UnmarshalExtension("observer", &obsCfg); err != nil {
		return obsCfg, err
	}

	if cmd.Flags().Changed("sort") {
		obsCfg.Sort, _ = cmd.Flags().GetString("sort")
	}
	if cmd.Flags().Changed("desc") {
		obsCfg.Descending, _ = cmd.Flags().GetBool("desc")
	}
	if cmd.Flags().Changed("ignore") {
		obsCfg.Ignore, _ = cmd.Flags().GetStringSlice("ignore")
	}
	if cmd.Flags().Changed("debounce-ms") {
		obsCfg.DebounceMs, _ = cmd.Flags().GetInt("debounce-ms")
	}
	return obsCfg, nil
}

func buildObserver(cmd *cobra.Command, dir string) (*observer.Observer, error) {
	obsCfg, err := observerConfig(cmd)
	if err != nil {
		return nil, err
	}

	key, err := itemlist.ParseSortKey(obsCfg.Sort)
	if err != nil {
		return nil, err
	}
	spec := itemlist.SortSpec{Key: key, Descending: obsCfg.Descending}

	opts := []observer.Option{observer.WithIgnore(obsCfg.Ignore)}
	if obsCfg.DebounceMs > 0 {
		opts = append(opts, observer.WithDebounce(time.Duration(obsCfg.DebounceMs)*time.Millisecond))
	}
	return observer.New(dir, spec, opts...)
}

func addObserverFlags(cmd *cobra.Command) {
	cmd.Flags().String("sort", "size", "Sort key: size, name or modtime")
	cmd.Flags().Bool("desc", false, "Reverse the sort direction")
	cmd.Flags().StringSlice("ignore", nil, "Ignore patterns (.dockerignore syntax)")
	cmd.Flags().Int("debounce-ms", 0, "Per-file write debounce in milliseconds")
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and print each change batch as it happens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handler := cli.NewErrorHandler(cli.GetOptions(cmd).Verbose)
			obs, err := buildObserver(cmd, args[0])
			if err != nil {
				return handler.Handle(err)
			}
			defer obs.Close()

			jsonOut, _ := cmd.Flags().GetBool("json")
			token := obs.List().Subscribe(func(l *itemlist.List, b *itemlist.ChangeBatch) {
				printBatch(l, b, jsonOut)
			})
			defer obs.List().Unsubscribe(token)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := obs.Start(ctx); err != nil {
				return handler.Handle(err)
			}
			return nil
		},
	}
	addObserverFlags(cmd)
	return cmd
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls <dir>",
		Short: "Print the directory's entries in sorted order once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handler := cli.NewErrorHandler(cli.GetOptions(cmd).Verbose)
			obs, err := buildObserver(cmd, args[0])
			if err != nil {
				return handler.Handle(err)
			}
			defer obs.Close()
			if err := obs.Rescan(); err != nil {
				return handler.Handle(err)
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			items := obs.List().Items()
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			for i, it := range items {
				marker := " "
				if it.IsDir {
					marker = "d"
				}
				fmt.Printf("%3d %s %10d  %s  %s\n", i, marker, it.Size,
					it.ModTime.Format("2006-01-02 15:04:05"), it.Name)
			}
			return nil
		},
	}
	addObserverFlags(cmd)
	return cmd
}

func printBatch(l *itemlist.List, b *itemlist.ChangeBatch, jsonOut bool) {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		_ = enc.Encode(b)
		return
	}
	for _, idx := range b.Deletions {
		fmt.Printf("- [%d]\n", idx)
	}
	for _, idx := range b.Insertions {
		fmt.Printf("+ [%d] %s\n", idx, l.ItemAt(idx).Name)
	}
	for _, idx := range b.Modifications {
		fmt.Printf("~ [%d] %s\n", idx, l.ItemAt(idx).Name)
	}
	for _, mv := range b.Movements {
		fmt.Printf("> [%d] -> [%d] %s\n", mv.From, mv.To, l.ItemAt(mv.To).Name)
	}
}
