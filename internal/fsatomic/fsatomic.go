// Package fsatomic persists small JSON documents (the device list, the session
// table) so that readers never observe a half-written file.
package fsatomic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// DefaultPerm is used when SaveJSON is called with perm 0.
const DefaultPerm fs.FileMode = 0o600

const renameAttempts = 5

// SaveJSON writes v as two-space indented JSON followed by a newline.
// The bytes go to path+".tmp" first, are fsynced, and are then renamed over
// path, so a crash leaves either the old or the new document in place.
func SaveJSON(ctx context.Context, path string, v any, perm fs.FileMode) error {
	if perm == 0 {
		perm = DefaultPerm
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	b = append(b, '\n')
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := writeSynced(tmp, b, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := fsyncDir(dir); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := renameInto(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return fsyncDir(dir)
}

// LoadJSON decodes path into v. exists is false when the file is missing.
// An empty file counts as existing and leaves v untouched.
// path+".tmp" is never read or removed here; it belongs to a writer holding
// WithLock, and the next SaveJSON truncates any leftover.
func LoadJSON(path string, v any) (exists bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return true, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// WithLock runs fn while holding an exclusive advisory lock on path+".lock".
func WithLock(path string, fn func() error) error {
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	unlock, err := flockExclusive(path + ".lock")
	if err != nil {
		return fmt.Errorf("lock %s: %w", filepath.Base(path), err)
	}
	defer unlock()
	return fn()
}

func writeSynced(name string, b []byte, perm fs.FileMode) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// renameInto retries on Windows, where the destination may be briefly held
// open by another reader.
func renameInto(tmp, path string) error {
	var err error
	for i := 0; i < renameAttempts; i++ {
		if err = os.Rename(tmp, path); err == nil {
			return nil
		}
		if runtime.GOOS != "windows" {
			return err
		}
		_ = os.Remove(path)
		time.Sleep(time.Duration(10*(i+1)) * time.Millisecond)
	}
	return fmt.Errorf("rename failed after %d attempts: %w", renameAttempts, err)
}

func fsyncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
