//go:build !unix

package local

import "os"

// fileOwner is empty outside Unix. On Windows owner information requires
// additional API calls (GetSecurityInfo) which are not wired up.
func fileOwner(info os.FileInfo) string {
	return ""
}
