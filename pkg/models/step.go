package models

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Placeholders substituted in STEPDecoder.Args.
const (
	InputPlaceholder  = "{input}"
	OutputPlaceholder = "{output}"
)

// DefaultSTEPCommand tessellates STEP to STL with gmsh.
var (
	DefaultSTEPCommand = "gmsh"
	DefaultSTEPArgs    = []string{InputPlaceholder, "-2", "-format", "stl", "-o", OutputPlaceholder}
)

// resolved caches exec.LookPath per command name for the whole process.
var resolved sync.Map // map[string]func() (string, error)

func lookPathOnce(name string) (string, error) {
	fn, _ := resolved.LoadOrStore(name, sync.OnceValues(func() (string, error) {
		return exec.LookPath(name)
	}))
	return fn.(func() (string, error))()
}

// STEPDecoder tessellates STEP files by running an external mesher that
// writes STL, then parses that STL.
type STEPDecoder struct {
	Command string
	Args    []string

	path string
	stl  *STLDecoder
}

// NewSTEPDecoder returns a decoder for the given mesher. Empty values fall
// back to DefaultSTEPCommand and DefaultSTEPArgs.
func NewSTEPDecoder(command string, args []string) *STEPDecoder {
	if command == "" {
		command = DefaultSTEPCommand
	}
	if len(args) == 0 {
		args = DefaultSTEPArgs
	}
	return &STEPDecoder{
		Command: command,
		Args:    args,
		stl:     NewSTLDecoder(),
	}
}

// Init locates the mesher binary. The lookup happens once per process.
func (d *STEPDecoder) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := lookPathOnce(d.Command)
	if err != nil {
		return fmt.Errorf("%w: step mesher %q not found: %v", ErrBackendInit, d.Command, err)
	}
	d.path = path
	return nil
}

// Decode writes data to a scratch directory, runs the mesher and parses its
// STL output.
func (d *STEPDecoder) Decode(ctx context.Context, data []byte) ([]DecodedMesh, error) {
	if d.path == "" {
		return nil, fmt.Errorf("%w: step decoder used before Init", ErrBackendInit)
	}

	dir, err := os.MkdirTemp("", "designview-step-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "design.step")
	out := filepath.Join(dir, "design.stl")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("write step input: %w", err)
	}

	args := make([]string, len(d.Args))
	for i, a := range d.Args {
		a = strings.ReplaceAll(a, InputPlaceholder, in)
		args[i] = strings.ReplaceAll(a, OutputPlaceholder, out)
	}

	cmd := exec.CommandContext(ctx, d.path, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("run %s: %w: %s", d.Command, err, msg)
		}
		return nil, fmt.Errorf("run %s: %w", d.Command, err)
	}

	stl, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read mesher output: %w", err)
	}
	return d.stl.Decode(ctx, stl)
}
