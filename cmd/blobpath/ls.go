package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gobeaver/blobpath"
	"github.com/spf13/cobra"
)

func newLsCmd(a *app) *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "ls PATH",
		Short: "List a directory, prefix, bucket or scheme",
		Long: `List the immediate children of PATH. On a scheme root such as s3://
the buckets are listed. Sub-prefixes are shown with a trailing slash.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.list(cmd, args[0], long)
		},
	}

	cmd.Flags().BoolVarP(&long, "long", "l", false, "show size and modification time")
	return cmd
}

func (a *app) list(cmd *cobra.Command, arg string, long bool) error {
	p, err := a.fluid(arg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	rp, ok := p.(*blobpath.RemotePath)
	if !ok {
		return listLocal(out, p.String(), long)
	}

	ctx := cmd.Context()
	if isFile, err := rp.IsFile(ctx); err != nil {
		return err
	} else if isFile {
		st, err := rp.Stat(ctx)
		if err != nil {
			return err
		}
		printEntry(out, long, rp.String(), st.Size, st.LastModified)
		return nil
	}

	n := 0
	for entry, err := range a.fs.ScanDir(ctx, rp.Path()) {
		if err != nil {
			return err
		}
		n++
		if entry.Dir {
			printEntry(out, long, entry.Path.DirString(), blobpath.Unknown, blobpath.Unknown)
			continue
		}
		printEntry(out, long, entry.Path.String(), entry.Stat.Size, entry.Stat.LastModified)
	}
	if n == 0 && !rp.Path().IsRoot() && !rp.Path().IsBucket() {
		return blobpath.NewPathError("ls", rp.String(), blobpath.ErrNotExist)
	}
	return nil
}

func listLocal(out io.Writer, name string, long bool) error {
	info, err := os.Stat(name)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		printEntry(out, long, name, info.Size(), info.ModTime().Unix())
		return nil
	}

	entries, err := os.ReadDir(name)
	if err != nil {
		return err
	}
	for _, e := range entries {
		child := filepath.Join(name, e.Name())
		if e.IsDir() {
			printEntry(out, long, child+string(os.PathSeparator), blobpath.Unknown, blobpath.Unknown)
			continue
		}
		info, err := e.Info()
		if err != nil {
			return err
		}
		printEntry(out, long, child, info.Size(), info.ModTime().Unix())
	}
	return nil
}

// printEntry writes one listing line. The long format is
// "<size> <modified> <path>" with "-" for unknown values.
func printEntry(out io.Writer, long bool, name string, size, modified int64) {
	if !long {
		fmt.Fprintln(out, name)
		return
	}
	sizeCol, timeCol := "-", "-"
	if size != blobpath.Unknown {
		sizeCol = strconv.FormatInt(size, 10)
	}
	if modified != blobpath.Unknown {
		timeCol = time.Unix(modified, 0).UTC().Format(time.RFC3339)
	}
	fmt.Fprintf(out, "%12s  %-20s  %s\n", sizeCol, timeCol, name)
}
