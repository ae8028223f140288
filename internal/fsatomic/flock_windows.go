//go:build windows

package fsatomic

import (
	"errors"
	"os"
	"sync"
	"time"
)

const lockWait = 5 * time.Second

// flockExclusive emulates an advisory lock by exclusively creating the lock
// file and removing it on release.
func flockExclusive(lockPath string) (func(), error) {
	deadline := time.Now().Add(lockWait)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
		if err == nil {
			var once sync.Once
			return func() {
				once.Do(func() {
					_ = f.Close()
					_ = os.Remove(lockPath)
				})
			}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, errors.New("lock timeout")
		}
		time.Sleep(25 * time.Millisecond)
	}
}
