//go:build unix

package local

import (
	"os"
	"os/user"
	"strconv"
	"syscall"
)

// fileOwner returns the user name owning the file on Unix systems, or the
// numeric UID when it cannot be resolved.
func fileOwner(info os.FileInfo) string {
	sys := info.Sys()
	if sys == nil {
		return ""
	}

	stat, ok := sys.(*syscall.Stat_t)
	if !ok {
		return ""
	}

	uid := strconv.FormatUint(uint64(stat.Uid), 10)
	if u, err := user.LookupId(uid); err == nil {
		return u.Username
	}
	return uid
}
