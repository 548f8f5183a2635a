package fsutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore provides the file system operations used by folder ingestion.
type FileStore interface {
	// ListFiles walks path recursively and returns files whose extension is
	// in extensions, in lexical walk order.
	ListFiles(path string, extensions []string) ([]string, error)

	// ReadFile reads a file and returns its contents
	ReadFile(path string) ([]byte, error)

	// MakeDirectory creates a new directory and all necessary parents
	MakeDirectory(path string) error

	// RemoveAll removes a path and any children it contains
	RemoveAll(path string) error
}

// LocalFileStore implements FileStore using the local filesystem
type LocalFileStore struct{}

// NewLocalFileStore creates a new LocalFileStore
func NewLocalFileStore() FileStore {
	return &LocalFileStore{}
}

func (s *LocalFileStore) ListFiles(path string, extensions []string) ([]string, error) {
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	var files []string
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && allowed[strings.ToLower(filepath.Ext(p))] {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (s *LocalFileStore) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (s *LocalFileStore) MakeDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

func (s *LocalFileStore) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
