package main

import (
	"os"

	"github.com/gobeaver/blobpath"
	"github.com/spf13/cobra"
)

func newMvCmd(a *app) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "mv SRC DST",
		Short: "Move a file, blob or prefix",
		Long: `Move SRC to DST, replacing whatever DST holds. Within one scheme the
move is a per-blob copy and delete done by the backend; across schemes
the bytes are streamed and the source removed once everything arrived.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.move(cmd, args[0], args[1], verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print each moved file")
	return cmd
}

func (a *app) move(cmd *cobra.Command, srcArg, dstArg string, verbose bool) error {
	ctx := cmd.Context()

	src, err := a.fluid(srcArg)
	if err != nil {
		return err
	}
	isFile, err := src.IsFile(ctx)
	if err != nil {
		return err
	}

	dst, err := a.fluid(dstArg)
	if err != nil {
		return err
	}
	if isFile {
		if dst, err = a.destination(cmd, src, dstArg); err != nil {
			return err
		}
	}
	if s, d, ok := sameBackend(src, dst); ok {
		if err := a.fs.Replace(ctx, s, d); err != nil {
			return err
		}
		a.copied(cmd, verbose, src, dst)
		return nil
	}

	if err := a.copy(cmd, "mv", srcArg, dstArg, true, verbose); err != nil {
		return err
	}
	if isFile {
		return src.Unlink(ctx)
	}
	return a.removeTree(cmd, src)
}

// removeTree deletes a directory or prefix with everything beneath it.
func (a *app) removeTree(cmd *cobra.Command, p blobpath.FluidPath) error {
	switch p := p.(type) {
	case *blobpath.RemotePath:
		return a.fs.RemoveAll(cmd.Context(), p.Path())
	default:
		return os.RemoveAll(p.String())
	}
}
