package main

import (
	"fmt"

	"github.com/gobeaver/blobpath"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCpCmd(a *app) *cobra.Command {
	var recursive, verbose bool

	cmd := &cobra.Command{
		Use:   "cp SRC DST",
		Short: "Copy a file, blob or prefix",
		Long: `Copy SRC to DST. Either side may be local or remote. Copies within one
scheme are done by the backend; anything else streams the bytes through
this process. A DST ending in "/" receives SRC under its own name.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.copy(cmd, "cp", args[0], args[1], recursive, verbose)
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "copy directories and prefixes")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each copied file")
	return cmd
}

// copy copies src to dst. A single-file source lands on destination();
// a directory source requires recursive and keeps its relative names.
func (a *app) copy(cmd *cobra.Command, op, srcArg, dstArg string, recursive, verbose bool) error {
	ctx := cmd.Context()

	src, err := a.fluid(srcArg)
	if err != nil {
		return err
	}

	isFile, err := src.IsFile(ctx)
	if err != nil {
		return err
	}
	if isFile {
		dst, err := a.destination(cmd, src, dstArg)
		if err != nil {
			return err
		}
		if s, d, ok := sameBackend(src, dst); ok {
			err = a.fs.Copy(ctx, s, d)
		} else {
			_, err = blobpath.Transfer(ctx, src, dst, blobpath.TransferOptions{})
		}
		if err != nil {
			return err
		}
		a.copied(cmd, verbose, src, dst)
		return nil
	}

	isDir, err := src.IsDir(ctx)
	if err != nil {
		return err
	}
	if !isDir {
		return blobpath.NewPathError(op, src.String(), blobpath.ErrNotExist)
	}
	if !recursive {
		return fmt.Errorf("%s: %s is a directory (use -r)", op, src)
	}

	dst, err := a.fluid(dstArg)
	if err != nil {
		return err
	}
	if s, d, ok := sameBackend(src, dst); ok {
		if err := a.fs.Copy(ctx, s, d); err != nil {
			return err
		}
		a.copied(cmd, verbose, src, dst)
		return nil
	}
	return blobpath.TransferTree(ctx, src, dst, blobpath.TransferOptions{
		OnFile: func(from, to blobpath.FluidPath, n int64) {
			a.copied(cmd, verbose, from, to)
		},
	})
}

func (a *app) copied(cmd *cobra.Command, verbose bool, src, dst blobpath.FluidPath) {
	a.logger.Debug("Copied", zap.Stringer("src", src), zap.Stringer("dst", dst))
	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", src, dst)
	}
}
