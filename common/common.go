package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"
)

// SetupDataDir creates dataDir and its sub-directories with CreateDirSafe.
func SetupDataDir(dataDir string, paths []string, perms fs.FileMode) error {
	if err := CreateDirSafe(dataDir, perms); err != nil {
		return fmt.Errorf("failed to create data dir: (%s): %w", dataDir, err)
	}

	for _, path := range paths {
		path := filepath.Join(dataDir, path)
		if err := CreateDirSafe(path, perms); err != nil {
			return fmt.Errorf("failed to create path: (%s): %w", path, err)
		}
	}

	return nil
}

// CreateDirSafe creates the directory at path. An existing directory must be
// owned by the current user, or by its group with exactly perms set.
func CreateDirSafe(path string, perms fs.FileMode) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(path, perms)
	} else if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", path)
	}

	return checkOwner(path, info, perms)
}

// SaveFileSafe writes data to path, overwriting a file that passes the owner check.
func SaveFileSafe(path string, data []byte, perms fs.FileMode) error {
	info, err := os.Stat(path)
	if err == nil {
		if err := checkOwner(path, info, perms); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return os.WriteFile(path, data, perms)
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}

func checkOwner(path string, info fs.FileInfo, perms fs.FileMode) error {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok || stat == nil {
		return fmt.Errorf("failed to get stats of %s", path)
	}

	current, err := user.Current()
	if err != nil {
		return fmt.Errorf("failed to get current user: %w", err)
	}

	switch {
	case current.Uid == strconv.FormatUint(uint64(stat.Uid), 10):
		return nil
	case current.Gid != strconv.FormatUint(uint64(stat.Gid), 10):
		return fmt.Errorf("file/directory created by a user from a different group: %s", path)
	case info.Mode().Perm() != perms.Perm():
		return fmt.Errorf("permissions of the file/directory '%s' are set incorrectly by another user", path)
	default:
		return nil
	}
}
