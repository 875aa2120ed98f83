// Package fileutil provides filesystem helpers shared across the pipeline:
// video file validation and discovery, safe output naming, and disk space
// preflight checks.
package fileutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sys/unix"
)

// MinVideoSizeBytes is the smallest file accepted as a video container.
// Anything below this is a stub or a truncated download.
const MinVideoSizeBytes = 1024

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
	".flv":  {},
	".wmv":  {},
	".m4v":  {},
}

// IsVideoFile reports whether the path carries a recognized video extension.
func IsVideoFile(path string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ValidateVideoFile checks that path exists, is a regular file with a
// recognized video extension, and exceeds the minimum plausible size.
func ValidateVideoFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat video: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", path)
	}
	if !IsVideoFile(path) {
		return fmt.Errorf("unrecognized video extension: %s", filepath.Ext(path))
	}
	if info.Size() < MinVideoSizeBytes {
		return fmt.Errorf("file too small to be a video (%d bytes): %s", info.Size(), path)
	}
	return nil
}

// ListVideoFiles returns all recognized video files under dir, sorted by path.
func ListVideoFiles(dir string, recursive bool) ([]string, error) {
	var found []string
	if recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsVideoFile(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && IsVideoFile(entry.Name()) {
				found = append(found, filepath.Join(dir, entry.Name()))
			}
		}
	}
	sort.Strings(found)
	return found, nil
}

// SafeBaseName strips the extension from path's base name and replaces
// characters that are awkward in shell commands or URLs with underscores.
func SafeBaseName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "output"
	}
	return b.String()
}

// UniquePath returns path if it does not exist, otherwise the first
// "name_N.ext" variant that is free.
func UniquePath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

// CopyFile streams src to dst with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// CheckDiskSpace verifies the filesystem holding dir has at least
// requiredBytes available to the calling user.
func CheckDiskSpace(dir string, requiredBytes uint64) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", dir, err)
	}
	available := stat.Bavail * uint64(stat.Bsize)
	if available < requiredBytes {
		return fmt.Errorf("insufficient disk space in %s: %d bytes available, %d required", dir, available, requiredBytes)
	}
	return nil
}
