package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRmCmd(a *app) *cobra.Command {
	var recursive, verbose bool

	cmd := &cobra.Command{
		Use:   "rm PATH...",
		Short: "Remove files, blobs or prefixes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if err := a.remove(cmd, arg, recursive, verbose); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "remove directories and prefixes with their contents")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each removed path")
	return cmd
}

func (a *app) remove(cmd *cobra.Command, arg string, recursive, verbose bool) error {
	ctx := cmd.Context()

	p, err := a.fluid(arg)
	if err != nil {
		return err
	}
	isDir, err := p.IsDir(ctx)
	if err != nil {
		return err
	}

	switch {
	case !isDir:
		err = p.Unlink(ctx)
	case !recursive:
		return fmt.Errorf("rm: %s is a directory (use -r)", p)
	default:
		err = a.removeTree(cmd, p)
	}
	if err != nil {
		return err
	}

	a.logger.Debug("Removed", zap.Stringer("path", p), zap.Bool("tree", isDir))
	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", p)
	}
	return nil
}
