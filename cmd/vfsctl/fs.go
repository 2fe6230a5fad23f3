package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vfscore/vfskernel/pkg/kernel"
	"github.com/vfscore/vfskernel/pkg/posixmode"
	"github.com/vfscore/vfskernel/pkg/search"
)

func withKernel(fn func(ctx context.Context, k *kernel.Kernel) error) error {
	k, closer, err := openKernel(nil)
	if err != nil {
		return err
	}
	defer closer()
	return fn(context.Background(), k)
}

func newMkdirCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withKernel(func(ctx context.Context, k *kernel.Kernel) error {
				return k.Mkdir(ctx, args[0], kernel.MkdirOptions{Recursive: recursive, Mode: posixmode.DefaultDirMode})
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "parents", "p", false, "create parent directories as needed")
	return cmd
}

func newRmCmd() *cobra.Command {
	var recursive, force bool
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withKernel(func(ctx context.Context, k *kernel.Kernel) error {
				return k.Rm(ctx, args[0], recursive, force)
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "remove directories and their contents recursively")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "ignore nonexistent paths")
	return cmd
}

func newLsCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "ls <path>",
		Short: "List directory entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withKernel(func(ctx context.Context, k *kernel.Kernel) error {
				res, err := k.Readdir(ctx, args[0], kernel.ReaddirOptions{Recursive: recursive})
				if err != nil {
					return err
				}
				for _, d := range res.Entries {
					fmt.Println(d.Path())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "R", false, "list subdirectories recursively")
	return cmd
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a file's contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withKernel(func(ctx context.Context, k *kernel.Kernel) error {
				data, err := k.ReadFile(ctx, args[0], kernel.EncodingRaw)
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(data)
				return err
			})
		},
	}
}

func newWriteCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "write <path> <data>",
		Short: "Write data to a file, creating or overwriting it",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			var opts kernel.WriteFileOptions
			if mode != "" {
				m, err := strconv.ParseUint(mode, 8, 32)
				if err != nil {
					return fmt.Errorf("invalid --mode %q: %w", mode, err)
				}
				pm := posixmode.Mode(m)
				opts.Mode = &pm
			}
			return withKernel(func(ctx context.Context, k *kernel.Kernel) error {
				return k.WriteFile(ctx, args[0], []byte(args[1]), opts)
			})
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "octal permission bits (e.g. 644)")
	return cmd
}

func newMvCmd() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "mv <old> <new>",
		Short: "Rename or move a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withKernel(func(ctx context.Context, k *kernel.Kernel) error {
				return k.Rename(ctx, args[0], args[1], overwrite)
			})
		},
	}
	cmd.Flags().BoolVarP(&overwrite, "force", "f", false, "overwrite an existing destination")
	return cmd
}

func newLnCmd() *cobra.Command {
	var symbolic bool
	cmd := &cobra.Command{
		Use:   "ln <target> <path>",
		Short: "Create a hard or symbolic link",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withKernel(func(ctx context.Context, k *kernel.Kernel) error {
				if symbolic {
					return k.Symlink(ctx, args[0], args[1])
				}
				return k.Link(ctx, args[0], args[1])
			})
		},
	}
	cmd.Flags().BoolVarP(&symbolic, "symbolic", "s", false, "create a symbolic link instead of a hard link")
	return cmd
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Print entry metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withKernel(func(ctx context.Context, k *kernel.Kernel) error {
				st, err := k.Stat(ctx, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			})
		},
	}
}

func newSearchCmd() *cobra.Command {
	var root string
	var maxDepth, limit int
	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search for entries matching a glob pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withKernel(func(ctx context.Context, k *kernel.Kernel) error {
				matches, err := k.Search(ctx, args[0], search.Options{Path: root, MaxDepth: maxDepth, Limit: limit})
				if err != nil {
					return err
				}
				for _, m := range matches {
					fmt.Println(m.Path)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&root, "root", "/", "traversal root")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum traversal depth (0 = unlimited)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (0 = unlimited)")
	return cmd
}
