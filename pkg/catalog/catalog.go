// Package catalog keeps the materials, requirements and design files that
// the viewer looks designs up in. A design is identified by its material
// and the exact set of requirement choices (its specifications).
package catalog

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicateDesign       = errors.New("material and specifications combination already has a design")
	ErrInvalidSpecifications = errors.New("specifications must be a valid set of options")
	ErrNameRequired          = errors.New("name is required")
	ErrFileRequired          = errors.New("design file is required")
	ErrInUse                 = errors.New("still referenced by a design")
)

type Material struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}

// Requirement is a configurable property, such as "Color", with the values
// a customer may choose from.
type Requirement struct {
	ID        string    `yaml:"id" json:"id"`
	Name      string    `yaml:"name" json:"name"`
	Options   []string  `yaml:"options" json:"options"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}

// OptionsCSV joins the options for display and editing.
func (r Requirement) OptionsCSV() string {
	return strings.Join(r.Options, ", ")
}

// SetOptionsCSV replaces the options with the comma separated values in s,
// trimmed, with blanks dropped.
func (r *Requirement) SetOptionsCSV(s string) {
	r.Options = ParseOptionsCSV(s)
}

// ParseOptionsCSV splits s on commas, trims each value and drops blanks.
func ParseOptionsCSV(s string) []string {
	opts := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			opts = append(opts, part)
		}
	}
	return opts
}

// Design is an uploaded design file for one material and specification
// combination. File is relative to the catalog's storage directory.
type Design struct {
	ID             string            `yaml:"id" json:"id"`
	MaterialID     string            `yaml:"material_id" json:"material_id"`
	Specifications map[string]string `yaml:"specifications" json:"specifications"`
	File           string            `yaml:"file" json:"file"`
	CreatedAt      time.Time         `yaml:"created_at" json:"created_at"`
}

// Matches reports whether d belongs to materialID with exactly specs.
// A nil and an empty specification set are the same.
func (d Design) Matches(materialID string, specs map[string]string) bool {
	return d.MaterialID == materialID && maps.Equal(d.Specifications, specs)
}

// Catalog is an in-memory catalog safe for concurrent use.
type Catalog struct {
	mu           sync.RWMutex
	materials    []Material
	requirements []Requirement
	designs      []Design

	// Now stamps new records. Defaults to time.Now.
	Now func() time.Time
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{Now: time.Now}
}

func (c *Catalog) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

// newestFirst sorts by CreatedAt descending; ties keep the later insert
// first.
func newestFirst[T any](items []T, created func(T) time.Time) []T {
	out := slices.Clone(items)
	slices.Reverse(out)
	sort.SliceStable(out, func(i, j int) bool {
		return created(out[i]).After(created(out[j]))
	})
	return out
}

// Materials lists materials newest first.
func (c *Catalog) Materials() []Material {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return newestFirst(c.materials, func(m Material) time.Time { return m.CreatedAt })
}

// Requirements lists requirements newest first.
func (c *Catalog) Requirements() []Requirement {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := newestFirst(c.requirements, func(r Requirement) time.Time { return r.CreatedAt })
	for i := range out {
		out[i].Options = slices.Clone(out[i].Options)
	}
	return out
}

// Designs lists designs newest first.
func (c *Catalog) Designs() []Design {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := newestFirst(c.designs, func(d Design) time.Time { return d.CreatedAt })
	for i := range out {
		out[i].Specifications = maps.Clone(out[i].Specifications)
	}
	return out
}

func (c *Catalog) Material(id string) (Material, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.materials {
		if m.ID == id {
			return m, nil
		}
	}
	return Material{}, fmt.Errorf("material %s: %w", id, ErrNotFound)
}

func (c *Catalog) Requirement(id string) (Requirement, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.requirements {
		if r.ID == id {
			r.Options = slices.Clone(r.Options)
			return r, nil
		}
	}
	return Requirement{}, fmt.Errorf("requirement %s: %w", id, ErrNotFound)
}

func (c *Catalog) Design(id string) (Design, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.designIndex(id); i >= 0 {
		d := c.designs[i]
		d.Specifications = maps.Clone(d.Specifications)
		return d, nil
	}
	return Design{}, fmt.Errorf("design %s: %w", id, ErrNotFound)
}

func (c *Catalog) designIndex(id string) int {
	return slices.IndexFunc(c.designs, func(d Design) bool { return d.ID == id })
}

// AddMaterial creates a material.
func (c *Catalog) AddMaterial(name string) (Material, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Material{}, fmt.Errorf("add material: %w", ErrNameRequired)
	}
	m := Material{ID: uuid.NewString(), Name: name, CreatedAt: c.now()}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.materials = append(c.materials, m)
	return m, nil
}

// RemoveMaterial deletes a material that no design refers to.
func (c *Catalog) RemoveMaterial(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.materials, func(m Material) bool { return m.ID == id })
	if i < 0 {
		return fmt.Errorf("remove material %s: %w", id, ErrNotFound)
	}
	if slices.ContainsFunc(c.designs, func(d Design) bool { return d.MaterialID == id }) {
		return fmt.Errorf("remove material %s: %w", id, ErrInUse)
	}
	c.materials = slices.Delete(c.materials, i, i+1)
	return nil
}

// AddRequirement creates a requirement from a comma separated option
// list.
func (c *Catalog) AddRequirement(name, optionsCSV string) (Requirement, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Requirement{}, fmt.Errorf("add requirement: %w", ErrNameRequired)
	}
	r := Requirement{ID: uuid.NewString(), Name: name, CreatedAt: c.now()}
	r.SetOptionsCSV(optionsCSV)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.requirements = append(c.requirements, r)
	return r, nil
}

// UpdateRequirement renames a requirement and replaces its options.
func (c *Catalog) UpdateRequirement(id, name, optionsCSV string) (Requirement, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Requirement{}, fmt.Errorf("update requirement: %w", ErrNameRequired)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.requirements, func(r Requirement) bool { return r.ID == id })
	if i < 0 {
		return Requirement{}, fmt.Errorf("update requirement %s: %w", id, ErrNotFound)
	}
	c.requirements[i].Name = name
	c.requirements[i].SetOptionsCSV(optionsCSV)
	r := c.requirements[i]
	r.Options = slices.Clone(r.Options)
	return r, nil
}

// RemoveRequirement deletes a requirement. Designs keep their recorded
// specifications.
func (c *Catalog) RemoveRequirement(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := slices.IndexFunc(c.requirements, func(r Requirement) bool { return r.ID == id })
	if i < 0 {
		return fmt.Errorf("remove requirement %s: %w", id, ErrNotFound)
	}
	c.requirements = slices.Delete(c.requirements, i, i+1)
	return nil
}

// AddDesign records a design file for a material and specification set.
// The pair must not already have a design.
func (c *Catalog) AddDesign(materialID string, specs map[string]string, file string) (Design, error) {
	if file == "" {
		return Design{}, fmt.Errorf("add design: %w", ErrFileRequired)
	}
	if err := validateSpecifications(specs); err != nil {
		return Design{}, fmt.Errorf("add design: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !slices.ContainsFunc(c.materials, func(m Material) bool { return m.ID == materialID }) {
		return Design{}, fmt.Errorf("add design: material %s: %w", materialID, ErrNotFound)
	}
	for _, d := range c.designs {
		if d.Matches(materialID, specs) {
			return Design{}, fmt.Errorf("add design: %w (existing %s)", ErrDuplicateDesign, d.ID)
		}
	}

	d := Design{
		ID:             uuid.NewString(),
		MaterialID:     materialID,
		Specifications: maps.Clone(specs),
		File:           file,
		CreatedAt:      c.now(),
	}
	if d.Specifications == nil {
		d.Specifications = map[string]string{}
	}
	c.designs = append(c.designs, d)

	out := d
	out.Specifications = maps.Clone(d.Specifications)
	return out, nil
}

// RemoveDesign deletes a design record and returns it so the caller can
// remove its file.
func (c *Catalog) RemoveDesign(id string) (Design, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.designIndex(id)
	if i < 0 {
		return Design{}, fmt.Errorf("remove design %s: %w", id, ErrNotFound)
	}
	d := c.designs[i]
	c.designs = slices.Delete(c.designs, i, i+1)
	return d, nil
}

// Lookup finds the design for materialID whose specifications equal specs
// exactly: same keys, same values, nothing extra.
func (c *Catalog) Lookup(materialID string, specs map[string]string) (Design, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.designs {
		if d.Matches(materialID, specs) {
			d.Specifications = maps.Clone(d.Specifications)
			return d, nil
		}
	}
	return Design{}, fmt.Errorf("lookup %s %v: %w", materialID, specs, ErrNotFound)
}

// Replace swaps in the contents of other, as after a reload from disk.
func (c *Catalog) Replace(other *Catalog) {
	other.mu.RLock()
	materials := slices.Clone(other.materials)
	requirements := slices.Clone(other.requirements)
	designs := slices.Clone(other.designs)
	other.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.materials, c.requirements, c.designs = materials, requirements, designs
}

// Counts returns the number of materials, requirements and designs.
func (c *Catalog) Counts() (materials, requirements, designs int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.materials), len(c.requirements), len(c.designs)
}

func validateSpecifications(specs map[string]string) error {
	for k := range specs {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: empty requirement name", ErrInvalidSpecifications)
		}
		if strings.ContainsAny(k, specSeparators) {
			return fmt.Errorf("%w: requirement name %q contains '=' or ':'", ErrInvalidSpecifications, k)
		}
	}
	return nil
}

const specSeparators = "=:"

// ParseSpecifications turns "key=value" or "key:value" pairs into a
// specification set. The first separator ends the key, so values may hold
// either character.
func ParseSpecifications(pairs []string) (map[string]string, error) {
	specs := make(map[string]string, len(pairs))
	for _, p := range pairs {
		i := strings.IndexAny(p, specSeparators)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q is not key=value", ErrInvalidSpecifications, p)
		}
		k, v := strings.TrimSpace(p[:i]), strings.TrimSpace(p[i+1:])
		if k == "" {
			return nil, fmt.Errorf("%w: %q is not key=value", ErrInvalidSpecifications, p)
		}
		if _, dup := specs[k]; dup {
			return nil, fmt.Errorf("%w: %q given twice", ErrInvalidSpecifications, k)
		}
		specs[k] = v
	}
	return specs, nil
}
