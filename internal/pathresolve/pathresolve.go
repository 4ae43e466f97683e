// Package pathresolve maps a request URI to an absolute filesystem
// path beneath a document root, rejecting any path that canonicalizes
// outside the root. Grounded on original_source/src/handler.c's
// resolve_path.
package pathresolve

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// ErrForbidden, ErrNotFound, and ErrInternal map 1:1 to the
// resolve_path error branches in original_source/src/handler.c
// (EACCES → 403, ENOTDIR/ENOENT → 404, anything else → 500).
var (
	ErrForbidden = errors.New("pathresolve: outside document root or permission denied")
	ErrNotFound  = errors.New("pathresolve: not found")
	ErrInternal  = errors.New("pathresolve: internal error")
)

// Root canonicalizes a document root directory once at startup
// (spec.md §3: "The document root is canonicalized once"). Every
// subsequent Resolve call prefix-checks against root's canonical
// form.
type Root struct {
	canonical string // no trailing separator
}

// NewRoot canonicalizes dir (resolving symlinks and "..") and returns
// a Root usable for resolving request URIs.
func NewRoot(dir string) (*Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	canon, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	return &Root{canonical: filepath.Clean(canon)}, nil
}

// String returns the canonicalized root directory.
func (r *Root) String() string {
	return r.canonical
}

// Resolve maps uri to an absolute path beneath r, implementing
// spec.md §4.3 exactly:
//  1. "" or "/" is replaced with "index.html".
//  2. doc_root + "/" + uri is composed and canonicalized (symlinks and
//     ".." resolved).
//  3. The canonical result is prefix-checked against the canonical
//     root as a directory boundary, not a bare byte prefix — the next
//     byte after the root must be the path separator or end-of-string,
//     which is the fix spec.md §4.3 calls for ("root/foo must not
//     accidentally match rootfoo").
func (r *Root) Resolve(uri string) (string, error) {
	if uri == "" || uri == "/" {
		uri = "index.html"
	}

	composed := filepath.Join(r.canonical, uri)

	canonical, err := filepath.EvalSymlinks(composed)
	if err != nil {
		return "", classifyErr(err)
	}
	canonical = filepath.Clean(canonical)

	if !withinRoot(canonical, r.canonical) {
		return "", ErrForbidden
	}

	return canonical, nil
}

// withinRoot reports whether path is root itself or a descendant of
// root, using a separator-aware comparison so that e.g. "/srv/www2"
// is never mistaken for a child of "/srv/www".
func withinRoot(path, root string) bool {
	if path == root {
		return true
	}
	if len(path) <= len(root) || path[:len(root)] != root {
		return false
	}
	return path[len(root)] == os.PathSeparator
}

func classifyErr(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return ErrForbidden
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return ErrNotFound
	default:
		return ErrInternal
	}
}
