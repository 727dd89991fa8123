package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	stampLayout = "20060102T150405Z"
	ext         = ".zst"
)

// Snapshot compresses srcPath into archiveDir/{base}-{stamp}{srcExt}.zst and
// returns the snapshot path. Snapshots never overwrite each other as long as
// they are taken at distinct seconds.
func Snapshot(srcPath, archiveDir string, at time.Time) (string, error) {
	name := filepath.Base(srcPath)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("cannot snapshot %q", srcPath)
	}

	destPath := SnapshotPath(srcPath, archiveDir, at)

	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	tmpPath := destPath + ".tmp"
	if err := compressTo(tmpPath, src); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename archive: %w", err)
	}
	return destPath, nil
}

func compressTo(path string, src io.Reader) error {
	dest, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	encoder, err := zstd.NewWriter(dest)
	if err != nil {
		dest.Close()
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := io.Copy(encoder, src); err != nil {
		encoder.Close()
		dest.Close()
		return fmt.Errorf("compress: %w", err)
	}
	if err := encoder.Close(); err != nil {
		dest.Close()
		return fmt.Errorf("finalize compression: %w", err)
	}
	if err := dest.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// SnapshotPath returns the deterministic snapshot path for srcPath taken at the given time.
func SnapshotPath(srcPath, archiveDir string, at time.Time) string {
	base, srcExt := splitName(filepath.Base(srcPath))
	return filepath.Join(archiveDir, base+"-"+at.UTC().Format(stampLayout)+srcExt+ext)
}

// List returns the snapshots of srcPath in archiveDir, oldest first.
func List(srcPath, archiveDir string) ([]string, error) {
	base, srcExt := splitName(filepath.Base(srcPath))
	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archive dir: %w", err)
	}

	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, base+"-") || !strings.HasSuffix(name, srcExt+ext) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, base+"-"), srcExt+ext)
		if _, err := time.Parse(stampLayout, stamp); err != nil {
			continue
		}
		out = append(out, filepath.Join(archiveDir, name))
	}
	// The stamp layout sorts lexically in time order.
	sort.Strings(out)
	return out, nil
}

// Latest returns the newest snapshot of srcPath, or "" when none exist.
func Latest(srcPath, archiveDir string) (string, error) {
	snaps, err := List(srcPath, archiveDir)
	if err != nil || len(snaps) == 0 {
		return "", err
	}
	return snaps[len(snaps)-1], nil
}

// Open opens path for reading, transparently decompressing .zst files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !IsCompressed(path) {
		return f, nil
	}

	decoder, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &decodeCloser{Decoder: decoder, file: f}, nil
}

// IsCompressed reports whether path names a zstd snapshot.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ext)
}

type decodeCloser struct {
	*zstd.Decoder
	file *os.File
}

func (d *decodeCloser) Close() error {
	d.Decoder.Close()
	return d.file.Close()
}

func splitName(name string) (base, srcExt string) {
	srcExt = filepath.Ext(name)
	return strings.TrimSuffix(name, srcExt), srcExt
}
