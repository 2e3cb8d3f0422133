package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoRecordings is returned when a directory holds no recording exports
var ErrNoRecordings = errors.New("no recordings found")

// RecordingExtensions are the file types the parser reads
var RecordingExtensions = []string{".xlsx", ".xlsm", ".csv", ".txt"}

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery resolves relative paths against basePath
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(path string) string {
	if filepath.IsAbs(path) || d.basePath == "" {
		return path
	}
	return filepath.Join(d.basePath, path)
}

// IsRecording reports whether name has a recording extension.
// Office lock files (~$name.xlsx) are not recordings.
func IsRecording(name string) bool {
	if strings.HasPrefix(name, "~$") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range RecordingExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FindRecordings lists the recording exports directly inside dir, by name
func (d *Discovery) FindRecordings(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)
	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var found []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !IsRecording(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	return found, nil
}

// Expand replaces every directory argument with the recordings inside it.
// Other arguments pass through unchanged, so a missing file is reported by
// the loader with its own error.
func (d *Discovery) Expand(args []string) ([]string, error) {
	paths := make([]string, 0, len(args))
	for _, arg := range args {
		full := d.resolve(arg)
		info, err := os.Stat(full)
		if err != nil || !info.IsDir() {
			paths = append(paths, full)
			continue
		}
		found, err := d.FindRecordings(full)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("%s: %w", full, ErrNoRecordings)
		}
		for _, f := range found {
			paths = append(paths, f.Path)
		}
	}
	return paths, nil
}
