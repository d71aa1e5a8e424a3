package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// DiskUsage reports the on-disk footprint of the store and the upload area.
type DiskUsage struct {
	DatabaseBytes int64 `json:"database_bytes"`
	UploadsBytes  int64 `json:"uploads_bytes"`
	TotalBytes    int64 `json:"total_bytes"`
}

// MeasureDiskUsage sums the database file including its WAL sidecars and the
// upload directory. Missing paths contribute zero.
func MeasureDiskUsage(dbPath, uploadDir string) (*DiskUsage, error) {
	usage := &DiskUsage{}
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		n, err := pathSize(p)
		if err != nil {
			return nil, err
		}
		usage.DatabaseBytes += n
	}

	n, err := pathSize(uploadDir)
	if err != nil {
		return nil, err
	}
	usage.UploadsBytes = n
	usage.TotalBytes = usage.DatabaseBytes + usage.UploadsBytes
	return usage, nil
}

// pathSize returns the size of a file, or the recursive size of a directory.
func pathSize(path string) (int64, error) {
	if path == "" {
		return 0, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	var total int64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
