// Package storage abstracts where uploaded profile images live. The only
// shipped backend writes to local disk under the configured upload dir;
// object storage slots in behind the same interface.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/birizinit/meuacessor/src/logger"
)

// Storage persists uploaded files by name.
type Storage interface {
	// Save writes the content under filename and returns the public path
	// the frontend can load it from.
	Save(filename string, content io.Reader) (string, error)
	// Remove deletes a previously saved file. Removing a missing file is
	// not an error.
	Remove(filename string) error
	// Path resolves a stored filename to its on-disk location for serving.
	Path(filename string) (string, error)
}

type localDisk struct {
	dir        string
	publicBase string
}

// NewLocalDisk stores files under dir and reports public paths rooted at
// publicBase (normally /uploads). Creates the directory if needed.
func NewLocalDisk(dir, publicBase string) (Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory %s: %w", dir, err)
	}
	return &localDisk{dir: dir, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

// sanitizeName rejects anything that could escape the upload directory.
func sanitizeName(filename string) (string, error) {
	base := filepath.Base(filename)
	if base != filename || base == "." || base == ".." || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return base, nil
}

func (s *localDisk) Save(filename string, content io.Reader) (string, error) {
	name, err := sanitizeName(filename)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.dir, name)

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", target, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("writing %s: %w", target, err)
	}

	logger.L.Debug("Stored uploaded file", "file", name)
	return s.publicBase + "/" + name, nil
}

func (s *localDisk) Remove(filename string) error {
	name, err := sanitizeName(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *localDisk) Path(filename string) (string, error) {
	name, err := sanitizeName(filename)
	if err != nil {
		return "", err
	}
	target := filepath.Join(s.dir, name)
	if _, err := os.Stat(target); err != nil {
		return "", err
	}
	return target, nil
}
