package viewer

import (
	"fmt"

	"github.com/taigrr/designview/pkg/models"
	"github.com/taigrr/designview/pkg/render"
)

// Placeholder and mesh appearance.
const (
	PlaceholderSize  = 20.0
	DefaultMeshColor = 0x6c8ebf
	PlaceholderColor = 0x4f46e5
)

// SceneBuilder turns decoded meshes into the scene's single model group.
type SceneBuilder struct {
	scene   *render.Scene
	current *render.Group
}

// NewSceneBuilder creates a builder for scene.
func NewSceneBuilder(scene *render.Scene) *SceneBuilder {
	return &SceneBuilder{scene: scene}
}

// Current returns the attached model group, or nil before the first
// Install.
func (b *SceneBuilder) Current() *render.Group {
	return b.current
}

// Build converts meshes into a group without attaching it. An empty list
// yields the placeholder.
func (b *SceneBuilder) Build(meshes []models.DecodedMesh) (*render.Group, error) {
	if len(meshes) == 0 {
		return NewPlaceholder(), nil
	}

	group := render.NewGroup("design")
	for i, dm := range meshes {
		mesh, err := dm.ToMesh()
		if err != nil {
			return nil, fmt.Errorf("build mesh %d: %w", i, err)
		}

		c := render.Hex(DefaultMeshColor)
		if dm.Color != nil {
			c = *dm.Color
			c.A = 255
		}
		mat := render.NewPhongMaterial(c)
		mat.Side = render.DoubleSide

		group.Add(&render.MeshNode{Name: dm.Name, Geometry: mesh, Material: mat})
	}
	return group, nil
}

// Install builds a group from meshes and swaps it in for the current one.
// On error the current group stays attached.
func (b *SceneBuilder) Install(meshes []models.DecodedMesh) (*render.Group, error) {
	group, err := b.Build(meshes)
	if err != nil {
		return nil, err
	}
	b.replace(group)
	return group, nil
}

// InstallPlaceholder swaps in a fresh placeholder.
func (b *SceneBuilder) InstallPlaceholder() *render.Group {
	group := NewPlaceholder()
	b.replace(group)
	return group
}

func (b *SceneBuilder) replace(next *render.Group) {
	old := b.current
	b.scene.ReplaceModel(old, next)
	b.current = next
	if old != nil && old != next {
		old.Dispose()
	}
}

// NewPlaceholder builds the stand-in shown when no design is available: a
// matte-metallic cube with black edges.
func NewPlaceholder() *render.Group {
	group := render.NewGroup("placeholder")
	group.Placeholder = true
	group.Add(
		&render.MeshNode{
			Name:     "placeholder",
			Geometry: models.NewBox("placeholder", PlaceholderSize),
			Material: render.NewStandardMaterial(render.Hex(PlaceholderColor), 0.5, 0.5),
		},
		render.NewBoxEdges(PlaceholderSize, render.ColorBlack),
	)
	return group
}
