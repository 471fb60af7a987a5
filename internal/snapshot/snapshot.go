// Package snapshot archives identity files and home directories before
// a destructive batch, so a disable or delete can be reversed by hand
// from forensic data. The engine treats it as an opaque capability.
package snapshot

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Archiver writes tar.gz snapshots under Dir.
type Archiver struct {
	Dir string
}

func New(dir string) *Archiver {
	return &Archiver{Dir: dir}
}

// Take archives the given files and directories into a timestamp-named
// tar.gz under the archiver's dir and returns the archive path. Paths
// that do not exist are skipped; a snapshot of whatever is left is
// better than no snapshot.
func (a *Archiver) Take(label string, paths []string) (string, error) {
	if err := os.MkdirAll(a.Dir, 0700); err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s.tar.gz", label, time.Now().Format("2006-01-02-150405"))
	dest := filepath.Join(a.Dir, name)

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return "", err
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	for _, p := range paths {
		if err := addPath(tw, p); err != nil {
			_ = tw.Close()
			_ = gz.Close()
			_ = f.Close()
			_ = os.Remove(dest)
			return "", err
		}
	}

	if err := tw.Close(); err != nil {
		_ = gz.Close()
		_ = f.Close()
		return "", err
	}
	if err := gz.Close(); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return dest, nil
}

func addPath(tw *tar.Writer, root string) error {
	info, err := os.Lstat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return addFile(tw, root, info)
	}
	return filepath.Walk(root, func(p string, fi fs.FileInfo, err error) error {
		if err != nil {
			// A file vanished or is unreadable mid-walk; archive the rest.
			return nil
		}
		if fi.IsDir() {
			hdr, err := tar.FileInfoHeader(fi, "")
			if err != nil {
				return err
			}
			hdr.Name = tarName(p) + "/"
			return tw.WriteHeader(hdr)
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		return addFile(tw, p, fi)
	})
}

func addFile(tw *tar.Writer, path string, info fs.FileInfo) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = tarName(path)
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

func tarName(path string) string {
	return strings.TrimPrefix(filepath.ToSlash(path), "/")
}
