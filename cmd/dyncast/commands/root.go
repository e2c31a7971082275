// Copyright © 2025 tjj
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package commands dyncast 命令行的各个子命令
package commands

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// Version 由构建时 -ldflags 注入
var Version = "dev"

type CLI struct {
	rootCmd *cobra.Command
	stdout  io.Writer
	stderr  io.Writer
}

func New(stdout, stderr io.Writer) *CLI {
	rootCmd := &cobra.Command{
		Use:           "dyncast",
		Short:         "Cached dynamic conversions over embedded struct hierarchies",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().Bool("json", false, "Log as JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log every slow-path resolution")

	c := &CLI{rootCmd: rootCmd, stdout: stdout, stderr: stderr}
	rootCmd.AddCommand(c.newBenchCmd())
	rootCmd.AddCommand(c.newLayoutCmd())
	rootCmd.AddCommand(c.newVersionCmd())
	return c
}

func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs 测试用
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

func (c *CLI) logger(cmd *cobra.Command) *slog.Logger {
	jsonMode, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if jsonMode {
		return slog.New(slog.NewJSONHandler(c.stderr, opts))
	}
	return slog.New(slog.NewTextHandler(c.stderr, opts))
}
