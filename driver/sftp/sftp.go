// Package sftp implements the sftp:// scheme on a remote directory served
// over SSH. Buckets are directories under the configured base path.
package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/blobpath"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Adapter provides an SFTP implementation of blobpath.Backend
type Adapter struct {
	mu       sync.Mutex
	client   *sftp.Client
	sshConn  *ssh.Client
	basePath string
	config   Config
}

// Config holds SFTP connection configuration
type Config struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"gte=0,lte=65535"`
	Username string `mapstructure:"username" validate:"required"`
	Password string `mapstructure:"password"`

	// PrivateKeyFile is read into PrivateKey when the driver is built from
	// client params.
	PrivateKeyFile string `mapstructure:"private_key_file" validate:"omitempty,file"`
	PrivateKey     []byte `mapstructure:"-"` // PEM encoded private key

	// KnownHostsFile verifies the server key; it defaults to
	// ~/.ssh/known_hosts unless InsecureIgnoreHostKey is set.
	KnownHostsFile        string `mapstructure:"known_hosts_file"`
	InsecureIgnoreHostKey bool   `mapstructure:"insecure_ignore_host_key"`

	BasePath string        `mapstructure:"base_path"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// New creates a new SFTP backend and connects to the server
func New(cfg Config) (*Adapter, error) {
	adapter := &Adapter{
		config:   cfg,
		basePath: path.Clean("/" + cfg.BasePath),
	}
	if cfg.BasePath != "" && !strings.HasPrefix(cfg.BasePath, "/") {
		// Relative base paths are resolved against the login directory
		adapter.basePath = path.Clean(cfg.BasePath)
	}

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if err := adapter.connect(); err != nil {
		return nil, err
	}
	return adapter, nil
}

// hostKeyCallback builds the host key check for the configured policy
func (a *Adapter) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if a.config.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	file := a.config.KnownHostsFile
	if file == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate known_hosts: %w", err)
		}
		file = path.Join(home, ".ssh", "known_hosts")
	}
	callback, err := knownhosts.New(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts: %w", err)
	}
	return callback, nil
}

// connect establishes SSH and SFTP connections. The caller holds a.mu.
func (a *Adapter) connect() error {
	hostKeyCallback, err := a.hostKeyCallback()
	if err != nil {
		return err
	}

	// Build SSH config
	sshConfig := &ssh.ClientConfig{
		User:            a.config.Username,
		HostKeyCallback: hostKeyCallback,
		Timeout:         a.config.Timeout,
	}

	// Add authentication method
	if len(a.config.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(a.config.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to parse private key: %w", err)
		}
		sshConfig.Auth = append(sshConfig.Auth, ssh.PublicKeys(signer))
	}

	if a.config.Password != "" {
		sshConfig.Auth = append(sshConfig.Auth, ssh.Password(a.config.Password))
	}

	if len(sshConfig.Auth) == 0 {
		return fmt.Errorf("no authentication method provided")
	}

	port := a.config.Port
	if port == 0 {
		port = 22
	}

	addr := fmt.Sprintf("%s:%d", a.config.Host, port)
	sshConn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SSH: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return fmt.Errorf("failed to create SFTP client: %w", err)
	}

	a.sshConn = sshConn
	a.client = sftpClient
	return nil
}

// Close closes the SFTP and SSH connections
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closeLocked()
}

func (a *Adapter) closeLocked() error {
	var errs []error

	if a.client != nil {
		if err := a.client.Close(); err != nil {
			errs = append(errs, err)
		}
		a.client = nil
	}

	if a.sshConn != nil {
		if err := a.sshConn.Close(); err != nil {
			errs = append(errs, err)
		}
		a.sshConn = nil
	}

	return errors.Join(errs...)
}

// conn returns a live client, reconnecting when the session was lost
func (a *Adapter) conn(ctx context.Context) (*sftp.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		if _, err := a.client.Getwd(); err == nil {
			return a.client, nil
		}
		// Connection lost, reconnect
		a.closeLocked()
	}
	if err := a.connect(); err != nil {
		return nil, err
	}
	return a.client, nil
}

// bucketDir returns the remote directory backing bucket
func (a *Adapter) bucketDir(op, bucket string) (string, error) {
	if bucket == "" || bucket == "." || bucket == ".." || strings.Contains(bucket, "/") {
		return "", blobpath.NewPathError(op, bucket, blobpath.ErrNotAllowed)
	}
	return path.Join(a.basePath, bucket), nil
}

// fullPath returns the remote file backing p
func (a *Adapter) fullPath(op string, p blobpath.Path) (string, error) {
	dir, err := a.bucketDir(op, p.Bucket())
	if err != nil {
		return "", err
	}
	full := path.Join(dir, p.Key())
	if full != dir && !strings.HasPrefix(full, dir+"/") {
		return "", blobpath.NewPathError(op, p.String(), blobpath.ErrNotAllowed)
	}
	return full, nil
}

func blobStat(info os.FileInfo) *blobpath.BlobStat {
	st := &blobpath.BlobStat{
		Size:         info.Size(),
		LastModified: blobpath.EpochSeconds(info.ModTime()),
	}
	if fs, ok := info.Sys().(*sftp.FileStat); ok {
		st.Owner = strconv.FormatUint(uint64(fs.UID), 10)
	}
	return st
}

// statFile stats the regular file behind p; directories report ErrNotExist
func (a *Adapter) statFile(ctx context.Context, op string, p blobpath.Path) (*sftp.Client, string, os.FileInfo, error) {
	client, err := a.conn(ctx)
	if err != nil {
		return nil, "", nil, err
	}
	full, err := a.fullPath(op, p)
	if err != nil {
		return nil, "", nil, err
	}
	info, err := client.Stat(full)
	if err != nil {
		return nil, "", nil, mapSFTPError(op, p.String(), err)
	}
	if info.IsDir() {
		return nil, "", nil, blobpath.NewPathError(op, p.String(), blobpath.ErrNotExist)
	}
	return client, full, info, nil
}

// Stat implements blobpath.Backend
func (a *Adapter) Stat(ctx context.Context, p blobpath.Path) (*blobpath.BlobStat, error) {
	_, _, info, err := a.statFile(ctx, "stat", p)
	if err != nil {
		return nil, err
	}
	return blobStat(info), nil
}

// ListBlobs implements blobpath.Backend. The walk starts at the deepest
// directory named by the prefix and results are sorted by key.
func (a *Adapter) ListBlobs(ctx context.Context, dir blobpath.Path, filter string) iter.Seq2[blobpath.BlobStat, error] {
	return func(yield func(blobpath.BlobStat, error) bool) {
		client, err := a.conn(ctx)
		if err != nil {
			yield(blobpath.BlobStat{}, err)
			return
		}
		bucketDir, err := a.bucketDir("list", dir.Bucket())
		if err != nil {
			yield(blobpath.BlobStat{}, err)
			return
		}

		base := dir.Prefix()
		prefix := base + filter
		start := bucketDir
		if i := strings.LastIndexByte(prefix, '/'); i >= 0 {
			start = path.Join(bucketDir, prefix[:i])
		}
		if start != bucketDir && !strings.HasPrefix(start, bucketDir+"/") {
			yield(blobpath.BlobStat{}, blobpath.NewPathError("list", dir.String(), blobpath.ErrNotAllowed))
			return
		}

		var out []blobpath.BlobStat
		walker := client.Walk(start)
		for walker.Step() {
			if err := ctx.Err(); err != nil {
				yield(blobpath.BlobStat{}, err)
				return
			}
			if err := walker.Err(); err != nil {
				if os.IsNotExist(err) {
					continue
				}
				yield(blobpath.BlobStat{}, mapSFTPError("list", dir.String(), err))
				return
			}

			key := strings.TrimPrefix(walker.Path(), bucketDir+"/")
			info := walker.Stat()
			if info.IsDir() {
				if walker.Path() != start && !strings.HasPrefix(key+"/", prefix) && !strings.HasPrefix(prefix, key+"/") {
					walker.SkipDir()
				}
				continue
			}
			if !info.Mode().IsRegular() || !strings.HasPrefix(key, prefix) {
				continue
			}
			st := blobStat(info)
			st.Name = strings.TrimPrefix(key, base)
			out = append(out, *st)
		}

		slices.SortFunc(out, func(x, y blobpath.BlobStat) int {
			return strings.Compare(x.Name, y.Name)
		})
		for _, st := range out {
			if !yield(st, nil) {
				return
			}
		}
	}
}

// Get implements blobpath.Backend
func (a *Adapter) Get(ctx context.Context, p blobpath.Path) (io.ReadCloser, error) {
	client, full, _, err := a.statFile(ctx, "get", p)
	if err != nil {
		return nil, err
	}
	f, err := client.Open(full)
	if err != nil {
		return nil, mapSFTPError("get", p.String(), err)
	}
	return f, nil
}

// Put implements blobpath.Backend. The bucket directory must exist.
func (a *Adapter) Put(ctx context.Context, p blobpath.Path, r io.Reader) error {
	if p.Key() == "" {
		return blobpath.NewPathError("put", p.String(), blobpath.ErrIsDir)
	}
	client, err := a.conn(ctx)
	if err != nil {
		return err
	}
	full, err := a.fullPath("put", p)
	if err != nil {
		return err
	}
	bucketDir, _ := a.bucketDir("put", p.Bucket())
	if info, err := client.Stat(bucketDir); err != nil || !info.IsDir() {
		return blobpath.NewPathError("put", p.String(), blobpath.ErrNotExist)
	}
	if info, err := client.Stat(full); err == nil && info.IsDir() {
		return blobpath.NewPathError("put", p.String(), blobpath.ErrIsDir)
	}

	if err := client.MkdirAll(path.Dir(full)); err != nil {
		return mapSFTPError("put", p.String(), err)
	}

	f, err := client.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return mapSFTPError("put", p.String(), err)
	}
	if _, err := f.ReadFrom(r); err != nil {
		f.Close()
		return mapSFTPError("put", p.String(), err)
	}
	return blobpath.WrapPathErr("put", p.String(), f.Close())
}

// Delete implements blobpath.Backend. Directories left empty are pruned
// up to the bucket directory.
func (a *Adapter) Delete(ctx context.Context, p blobpath.Path) error {
	client, full, _, err := a.statFile(ctx, "delete", p)
	if err != nil {
		return err
	}
	if err := client.Remove(full); err != nil {
		return mapSFTPError("delete", p.String(), err)
	}

	bucketDir, _ := a.bucketDir("delete", p.Bucket())
	for dir := path.Dir(full); dir != bucketDir && strings.HasPrefix(dir, bucketDir+"/"); dir = path.Dir(dir) {
		// RemoveDirectory fails on non-empty directories
		if client.RemoveDirectory(dir) != nil {
			break
		}
	}
	return nil
}

// Copy implements blobpath.Backend. SFTP has no server-side copy, so the
// content streams through the client.
func (a *Adapter) Copy(ctx context.Context, src, dst blobpath.Path) error {
	rc, err := a.Get(ctx, src)
	if err != nil {
		return blobpath.WrapPathErr("copy", src.String(), err)
	}
	defer rc.Close()
	return a.Put(ctx, dst, rc)
}

// BucketExists implements blobpath.Backend
func (a *Adapter) BucketExists(ctx context.Context, bucket string) (bool, error) {
	client, err := a.conn(ctx)
	if err != nil {
		return false, err
	}
	dir, err := a.bucketDir("bucketexists", bucket)
	if err != nil {
		return false, err
	}
	info, err := client.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, mapSFTPError("bucketexists", bucket, err)
	}
	return info.IsDir(), nil
}

// CreateBucket implements blobpath.Backend
func (a *Adapter) CreateBucket(ctx context.Context, bucket string) error {
	exists, err := a.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return blobpath.NewPathError("createbucket", bucket, blobpath.ErrExist)
	}
	client, err := a.conn(ctx)
	if err != nil {
		return err
	}
	dir, _ := a.bucketDir("createbucket", bucket)
	return mapSFTPError("createbucket", bucket, client.MkdirAll(dir))
}

// DeleteBucket implements blobpath.Backend
func (a *Adapter) DeleteBucket(ctx context.Context, bucket string) error {
	exists, err := a.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return blobpath.NewPathError("deletebucket", bucket, blobpath.ErrNotExist)
	}
	client, err := a.conn(ctx)
	if err != nil {
		return err
	}
	dir, _ := a.bucketDir("deletebucket", bucket)
	return mapSFTPError("deletebucket", bucket, client.RemoveAll(dir))
}

// ListBuckets implements blobpath.BucketLister
func (a *Adapter) ListBuckets(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		client, err := a.conn(ctx)
		if err != nil {
			yield("", err)
			return
		}
		entries, err := client.ReadDir(a.basePath)
		if err != nil {
			yield("", mapSFTPError("listbuckets", a.basePath, err))
			return
		}
		slices.SortFunc(entries, func(x, y os.FileInfo) int {
			return strings.Compare(x.Name(), y.Name())
		})
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			if !yield(e.Name(), nil) {
				return
			}
		}
	}
}

// Touch implements blobpath.Toucher
func (a *Adapter) Touch(ctx context.Context, p blobpath.Path) error {
	client, full, _, err := a.statFile(ctx, "touch", p)
	if err != nil {
		return err
	}
	now := time.Now()
	return mapSFTPError("touch", p.String(), client.Chtimes(full, now, now))
}

// mapSFTPError maps SFTP errors to blobpath errors. A nil err stays nil.
func mapSFTPError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return blobpath.NewPathError(op, path, blobpath.ErrNotExist)
	}

	var statusErr *sftp.StatusError
	if errors.As(err, &statusErr) && statusErr.FxCode() == sftp.ErrSSHFxNoSuchFile {
		return blobpath.NewPathError(op, path, blobpath.ErrNotExist)
	}

	return blobpath.WrapPathErr(op, path, err)
}

// Compile-time interface checks
var (
	_ blobpath.Backend      = (*Adapter)(nil)
	_ blobpath.BucketLister = (*Adapter)(nil)
	_ blobpath.Toucher      = (*Adapter)(nil)
	_ io.Closer             = (*Adapter)(nil)
)
