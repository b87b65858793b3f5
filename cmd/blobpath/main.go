// Command blobpath copies, moves, removes and lists blobs across storage
// backends using scheme-qualified paths such as s3://bucket/key. Plain
// paths and file:// URLs refer to the local file system.
package main

import (
	"os"

	_ "github.com/gobeaver/blobpath/driver/azure"
	_ "github.com/gobeaver/blobpath/driver/gcs"
	_ "github.com/gobeaver/blobpath/driver/local"
	_ "github.com/gobeaver/blobpath/driver/memory"
	_ "github.com/gobeaver/blobpath/driver/minio"
	_ "github.com/gobeaver/blobpath/driver/s3"
	_ "github.com/gobeaver/blobpath/driver/sftp"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
