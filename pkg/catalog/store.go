package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// document is the on-disk layout of a catalog file.
type document struct {
	Materials    []Material    `yaml:"materials"`
	Requirements []Requirement `yaml:"requirements"`
	Designs      []Design      `yaml:"designs"`
}

// Load reads a catalog from a YAML file. A missing file yields an empty
// catalog.
func Load(path string) (*Catalog, error) {
	c, err := loadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	return c, err
}

// loadFile is Load without the missing-file fallback.
func loadFile(path string) (*Catalog, error) {
	c := New()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	c.materials = doc.Materials
	c.requirements = doc.Requirements
	c.designs = doc.Designs
	for i := range c.designs {
		if c.designs[i].Specifications == nil {
			c.designs[i].Specifications = map[string]string{}
		}
	}
	return c, nil
}

// SaveTo writes the catalog as YAML. The file is replaced atomically so a
// watcher never sees a half-written catalog.
func (c *Catalog) SaveTo(path string) error {
	c.mu.RLock()
	doc := document{
		Materials:    c.materials,
		Requirements: c.requirements,
		Designs:      c.designs,
	}
	data, err := yaml.Marshal(&doc)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".catalog-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp catalog: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}
	return nil
}

// Storage holds design files on disk.
type Storage struct {
	Dir string
}

// Import copies src into the storage directory under a fresh name that
// keeps the extension, and returns that name.
func (s Storage) Import(src string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open design file: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create storage dir: %w", err)
	}
	name := uuid.NewString() + strings.ToLower(filepath.Ext(src))
	out, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create design file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("copy design file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("copy design file: %w", err)
	}
	return name, nil
}

// Path resolves a stored file name. Names that would escape the storage
// directory are rejected.
func (s Storage) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("design file %q: %w", name, ErrNotFound)
	}
	return filepath.Join(s.Dir, name), nil
}

// Remove deletes a stored file. A file that is already gone is not an
// error.
func (s Storage) Remove(name string) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove design file: %w", err)
	}
	return nil
}
