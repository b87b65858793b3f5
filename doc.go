// Package blobpath provides path-like access to blob stores. A [Path] such
// as s3://bucket/reports/2024.csv names a blob the way a file path names a
// file, and an [FS] answers the usual questions about it (exists, is it a
// directory, how big is it) by talking to the backend registered for the
// path's scheme.
//
// Object stores have a flat key namespace. Directories are emulated: a
// "directory" exists exactly when at least one blob key starts with its
// prefix, and bucket roots stand in for top-level directories.
//
// # Storage Backends
//
// Each backend lives in its own driver package and registers its scheme on
// import:
//
//   - Local disk, fs:// (github.com/gobeaver/blobpath/driver/local)
//   - In-memory, mem:// (github.com/gobeaver/blobpath/driver/memory)
//   - Amazon S3, s3:// (github.com/gobeaver/blobpath/driver/s3)
//   - Google Cloud Storage, gs:// (github.com/gobeaver/blobpath/driver/gcs)
//   - Azure Blob Storage, azure:// (github.com/gobeaver/blobpath/driver/azure)
//   - MinIO, minio:// (github.com/gobeaver/blobpath/driver/minio)
//   - SFTP, sftp:// (github.com/gobeaver/blobpath/driver/sftp)
//
// Using a scheme whose driver was not imported fails with a
// [*MissingDependencyError] naming the package to import.
//
// # Basic Usage
//
//	import _ "github.com/gobeaver/blobpath/driver/s3"
//
//	fs := blobpath.New()
//	fs.Registry().SetClientParams("s3", blobpath.ClientParams{"region": "eu-west-1"})
//
//	p := blobpath.MustParse("s3://bucket/reports/2024.csv.gz")
//
//	// Compression follows the extension
//	err := fs.WriteText(ctx, p, "id,total\n")
//	text, err := fs.ReadText(ctx, p)
//
//	ok, err := fs.IsDir(ctx, p.Parent())
//
// # Listings
//
// Listings and globs are lazy, single-pass sequences. The S3, GCS, Azure and
// MinIO drivers fetch pages as the sequence is consumed; the local, memory
// and SFTP drivers collect the matching keys up front.
//
//	matches, err := fs.Glob(ctx, blobpath.MustParse("s3://bucket/"), "logs/**/*.json")
//	for p, err := range matches {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(p)
//	}
//
// # Local Cache
//
// [FS.ToLocal] mirrors a blob or prefix onto local disk. Each cached file
// has a sidecar recording the remote modification time it was fetched with;
// the blob is downloaded again only when that time changes.
//
//	local, err := fs.ToLocal(ctx, p, false)
//
// # Across Backends
//
// Rename and Copy stay within one scheme. [Transfer] and [TransferTree]
// stream raw bytes between any two [FluidPath] values, local or remote:
//
//	src, _ := blobpath.Fluid(fs, "/data/export.csv")
//	dst, _ := blobpath.Fluid(fs, "gs://archive/2024/export.csv")
//	n, err := blobpath.Transfer(ctx, src, dst, blobpath.TransferOptions{})
//
// # Registry
//
// Every FS dispatches through a [Registry]. Backends are built lazily from
// the scheme's [ClientParams] on first use, or registered explicitly:
//
//	reg := fs.Registry()
//	reg.Register("s3", s3.New(client))
//
//	// Route every scheme to one local directory while developing
//	reg.Override(localBackend)
//
// The package-level helpers ([Register], [SetClientParams], [UseCache],
// [ToLocal]) act on a default FS configured from the environment.
//
// # Error Handling
//
//	_, err := fs.Stat(ctx, p)
//	if blobpath.IsNotExist(err) {
//	    // No blob at p
//	}
//
// Multi-blob operations (prefix rename, recursive delete, recursive
// materialize) keep going past individual failures and return a
// [*BatchError] listing them.
//
// # Configuration
//
// [Config] is loaded from BLOBPATH_ environment variables and turned into
// client params with [Config.Apply].
package blobpath
