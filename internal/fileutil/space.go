package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// ErrInsufficientSpace reports a destination volume that cannot hold a publish.
var ErrInsufficientSpace = errors.New("insufficient free space")

// FreeSpace returns the bytes available to unprivileged users on the volume
// holding path. Missing trailing components are skipped, so a publish
// directory that does not exist yet reports its nearest existing parent.
func FreeSpace(path string) (uint64, error) {
	dir, err := existingAncestor(path)
	if err != nil {
		return 0, err
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", dir, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// EnsureSpace fails when the volume holding dir has less than need bytes free.
func EnsureSpace(dir string, need int64) error {
	if need <= 0 {
		return nil
	}
	free, err := FreeSpace(dir)
	if err != nil {
		return err
	}
	if free < uint64(need) {
		return fmt.Errorf("%w: need %s, %s available at %s",
			ErrInsufficientSpace, humanize.IBytes(uint64(need)), humanize.IBytes(free), dir)
	}
	return nil
}

func existingAncestor(path string) (string, error) {
	current, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(current); err == nil {
			return current, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return current, nil
		}
		current = parent
	}
}
