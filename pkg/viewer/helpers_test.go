package viewer

import (
	"context"
	"sync/atomic"

	"github.com/taigrr/designview/pkg/models"
)

// fakeDecoder returns canned meshes. When block is set Decode waits for it
// to close before returning; initBlock does the same for Init.
type fakeDecoder struct {
	initErr   error
	meshes    []models.DecodedMesh
	err       error
	block     chan struct{}
	initBlock chan struct{}

	inits   atomic.Int32
	decodes atomic.Int32
}

func (d *fakeDecoder) Init(context.Context) error {
	d.inits.Add(1)
	if d.initBlock != nil {
		<-d.initBlock
	}
	return d.initErr
}

func (d *fakeDecoder) Decode(ctx context.Context, _ []byte) ([]models.DecodedMesh, error) {
	d.decodes.Add(1)
	if d.block != nil {
		<-d.block
	}
	return d.meshes, d.err
}

func triangleMesh(name string, z float32, normals bool) models.DecodedMesh {
	m := models.DecodedMesh{
		Name:      name,
		Positions: []float32{0, 0, z, 10, 0, z, 0, 10, z},
	}
	if normals {
		m.Normals = []float32{0, 0, 1, 0, 0, 1, 0, 0, 1}
	}
	return m
}
