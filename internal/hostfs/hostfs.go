package hostfs

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

var globalMu sync.Mutex
var fileMu = map[string]*sync.Mutex{}

// OnFallback, when set, is called whenever WriteFileAtomic loses
// atomicity and rewrites the target in place. The CLI points it at
// the run reporter so the report records the degraded write.
var OnFallback func(path string, err error)

func muFor(path string) *sync.Mutex {
	globalMu.Lock()
	defer globalMu.Unlock()
	if m := fileMu[path]; m != nil {
		return m
	}
	m := &sync.Mutex{}
	fileMu[path] = m
	return m
}

func ReadFile(path string) ([]byte, error) {
	m := muFor(path)
	m.Lock()
	defer m.Unlock()
	return os.ReadFile(path)
}

// WriteFileAtomic replaces path with data via a temp file and rename.
// Some targets (bind mounts, odd filesystems) refuse the rename with
// EBUSY/EXDEV/EPERM; those fall back to an in-place truncate-and-write,
// reported through OnFallback.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	m := muFor(path)
	m.Lock()
	defer m.Unlock()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".lockdown-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		if needsInPlace(err) {
			if OnFallback != nil {
				OnFallback(path, err)
			}
			f, err2 := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, perm)
			if err2 != nil {
				return err
			}
			if _, err2 := f.Write(data); err2 != nil {
				_ = f.Close()
				return err2
			}
			_ = f.Sync()
			return f.Close()
		}
		return err
	}
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// needsInPlace reports whether a rename failure means the target sits
// on a bind mount or another filesystem, where replacing the inode is
// impossible and only an in-place rewrite can succeed.
func needsInPlace(err error) bool {
	return errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EXDEV) || errors.Is(err, syscall.EPERM)
}

// AppendLine writes a single line to path with O_APPEND, creating the
// file if needed. One write syscall per call, so concurrent appenders
// never interleave mid-line.
func AppendLine(path string, line string, perm os.FileMode) error {
	m := muFor(path)
	m.Lock()
	defer m.Unlock()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, perm)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func EnsureDir(path string, perm os.FileMode) error {
	m := muFor(path)
	m.Lock()
	defer m.Unlock()
	return os.MkdirAll(path, perm)
}

func EnsureFile(path string, perm os.FileMode) error {
	m := muFor(path)
	m.Lock()
	defer m.Unlock()
	f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, perm)
	if err != nil {
		return err
	}
	return f.Close()
}
