package blobpath

import (
	"path"
	"strings"
)

// Path is an immutable, scheme-qualified blob path of the form
// scheme://bucket/key. Paths are comparable with == and usable as map keys;
// trailing slashes never take part in equality.
//
// A Path with an empty bucket is the scheme root ("s3://"). A Path with a
// bucket and no key is a bucket root ("s3://bucket/").
type Path struct {
	scheme string
	bucket string
	key    string
}

// Parse parses a scheme-qualified path string.
//
// Strings without a scheme, plain local paths ("/tmp/x", `C:\x`) and the
// file:// scheme are rejected with ErrMalformedPath; use Fluid to accept
// both local and remote paths.
func Parse(s string) (Path, error) {
	scheme, rest, ok := strings.Cut(s, "://")
	if !ok || !validScheme(scheme) || strings.EqualFold(scheme, localScheme) {
		return Path{}, NewPathError("parse", s, ErrMalformedPath)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	p, err := newPath(strings.ToLower(scheme), bucket, key)
	if err != nil {
		return Path{}, NewPathError("parse", s, err)
	}
	return p, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// NewPath builds a Path from its parts. Each key element may itself contain
// slashes; empty and "." segments are dropped.
func NewPath(scheme, bucket string, key ...string) (Path, error) {
	if !validScheme(scheme) {
		return Path{}, NewPathError("new", scheme+"://"+bucket, ErrMalformedPath)
	}
	p, err := newPath(strings.ToLower(scheme), bucket, key...)
	if err != nil {
		return Path{}, NewPathError("new", scheme+"://"+bucket, err)
	}
	return p, nil
}

// FromBucket returns the root path of a bucket.
func FromBucket(scheme, bucket string) (Path, error) {
	return NewPath(scheme, bucket)
}

func newPath(scheme, bucket string, key ...string) (Path, error) {
	segs := splitSegments(key...)
	if bucket == "" && len(segs) > 0 {
		return Path{}, ErrMalformedPath
	}
	if bucket == "." || bucket == ".." || strings.ContainsAny(bucket, `\`) {
		return Path{}, ErrMalformedPath
	}
	return Path{scheme: scheme, bucket: bucket, key: strings.Join(segs, "/")}, nil
}

// splitSegments splits every element on "/" and drops empty and "."
// segments. ".." is kept for Resolve.
func splitSegments(elems ...string) []string {
	var segs []string
	for _, e := range elems {
		for _, s := range strings.Split(e, "/") {
			if s == "" || s == "." {
				continue
			}
			segs = append(segs, s)
		}
	}
	return segs
}

func validScheme(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

func (p Path) Scheme() string { return p.scheme }
func (p Path) Bucket() string { return p.bucket }

// Key returns the slash-joined key without leading or trailing slash.
func (p Path) Key() string { return p.key }

// Parts returns the key segments.
func (p Path) Parts() []string {
	if p.key == "" {
		return nil
	}
	return strings.Split(p.key, "/")
}

// Prefix returns the key as a listing prefix: the key followed by a slash,
// or "" for a bucket root.
func (p Path) Prefix() string {
	if p.key == "" {
		return ""
	}
	return p.key + "/"
}

// IsRoot reports whether p is a scheme root with no bucket.
func (p Path) IsRoot() bool { return p.bucket == "" }

// IsBucket reports whether p is exactly a bucket root.
func (p Path) IsBucket() bool { return p.bucket != "" && p.key == "" }

// BucketPath returns the root of p's bucket.
func (p Path) BucketPath() Path {
	return Path{scheme: p.scheme, bucket: p.bucket}
}

// Name returns the final key segment, or the bucket name for a bucket root.
func (p Path) Name() string {
	if p.key == "" {
		return p.bucket
	}
	return path.Base(p.key)
}

// Ext returns the file name extension of the final segment.
func (p Path) Ext() string {
	return path.Ext(p.Name())
}

// Parent returns the path one segment up. The parent of a bucket root is
// the bucket root itself.
func (p Path) Parent() Path {
	if p.key == "" {
		return p
	}
	i := strings.LastIndexByte(p.key, '/')
	if i < 0 {
		p.key = ""
	} else {
		p.key = p.key[:i]
	}
	return p
}

// Join appends segments to p. Empty and "." segments are dropped and ".."
// is resolved against the accumulated key immediately. Joining onto a
// scheme root makes the first segment the bucket.
func (p Path) Join(elem ...string) (Path, error) {
	segs := p.Parts()
	bucket := p.bucket
	for _, s := range splitSegments(elem...) {
		switch {
		case bucket == "":
			if s == ".." {
				return Path{}, NewPathError("join", p.String(), ErrResolution)
			}
			bucket = s
		case s == "..":
			if len(segs) == 0 {
				return Path{}, NewPathError("join", p.String(), ErrResolution)
			}
			segs = segs[:len(segs)-1]
		default:
			segs = append(segs, s)
		}
	}
	return Path{scheme: p.scheme, bucket: bucket, key: strings.Join(segs, "/")}, nil
}

// child appends a name taken from a backend listing. The name is kept
// byte for byte, empty segments included, so the result addresses the
// listed blob and not a normalized neighbour.
func (p Path) child(rel string) Path {
	if rel == "" {
		return p
	}
	return Path{scheme: p.scheme, bucket: p.bucket, key: p.Prefix() + rel}
}

// Resolve removes ".." segments lexically. Remote stores have no symlinks,
// so lexical resolution is exact. Resolving above the bucket root fails
// with ErrResolution.
func (p Path) Resolve() (Path, error) {
	if !strings.Contains(p.key, "..") {
		return p, nil
	}
	var out []string
	for _, s := range p.Parts() {
		if s != ".." {
			out = append(out, s)
			continue
		}
		if len(out) == 0 {
			return Path{}, NewPathError("resolve", p.String(), ErrResolution)
		}
		out = out[:len(out)-1]
	}
	p.key = strings.Join(out, "/")
	return p, nil
}

// Within reports whether p equals dir or lies underneath it.
func (p Path) Within(dir Path) bool {
	if p.scheme != dir.scheme {
		return false
	}
	if dir.bucket == "" {
		return true
	}
	if p.bucket != dir.bucket {
		return false
	}
	if dir.key == "" || p.key == dir.key {
		return true
	}
	return strings.HasPrefix(p.key, dir.Prefix())
}

// RelativeTo returns p's key relative to dir.
func (p Path) RelativeTo(dir Path) (string, error) {
	if !p.Within(dir) || dir.bucket == "" {
		return "", NewPathError("rel", p.String(), ErrNotAllowed)
	}
	return strings.TrimPrefix(p.key, dir.Prefix()), nil
}

// Equal reports whether p and o name the same location.
func (p Path) Equal(o Path) bool {
	return p == o
}

// String renders p as scheme://bucket/key. A bucket root renders with a
// single trailing slash; a blob never does.
func (p Path) String() string {
	switch {
	case p.bucket == "":
		return p.scheme + "://"
	case p.key == "":
		return p.scheme + "://" + p.bucket + "/"
	default:
		return p.scheme + "://" + p.bucket + "/" + p.key
	}
}

// DirString renders p with a trailing slash, the form used when p names a
// prefix.
func (p Path) DirString() string {
	s := p.String()
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
