package model

import "github.com/GrainArc/vtsclient/geom"

// RenderSurfaceTask is one compositor-produced draw for a submesh
// (spec §3 RenderTask).
type RenderSurfaceTask struct {
	Mesh          MeshHandle
	TextureColor  *Resource // Texture resource, nil if none
	TextureMask   *Resource // Texture resource, nil if none
	Model         geom.Mat4
	UvTrans       geom.Mat3
	Color         geom.Vec4
	ExternalUV    bool
	BoundLayerId  string
}

// RenderColliderTask is a physics/collision-only draw (no texture),
// emitted alongside opaque/transparent tasks (SPEC_FULL §12).
type RenderColliderTask struct {
	Mesh  MeshHandle
	Model geom.Mat4
}

// DrawGeodataTask wraps an opaque handle into the geodata renderer's
// own per-feature render state; the engine only threads it through.
type DrawGeodataTask struct {
	Geodata any
}

// DrawTask is the per-frame projection of a RenderSurfaceTask for the
// renderer collaborator: mvp = viewProj * model.
type DrawTask struct {
	Mvp          geom.Mat4
	Uvm          geom.Mat3
	Color        geom.Vec4
	Mesh         MeshHandle
	TextureColor TextureHandle
	TextureMask  TextureHandle
	ExternalUV   bool
	BoundLayerId string
}

// ToDrawTask projects a RenderSurfaceTask into a DrawTask given the
// camera's viewProj matrix for this frame.
func (t RenderSurfaceTask) ToDrawTask(viewProj geom.Mat4) DrawTask {
	d := DrawTask{
		Mvp:          viewProj.Mul(t.Model),
		Uvm:          t.UvTrans,
		Color:        t.Color,
		Mesh:         t.Mesh,
		ExternalUV:   t.ExternalUV,
		BoundLayerId: t.BoundLayerId,
	}
	if t.TextureColor != nil {
		if tex, ok := t.TextureColor.Payload().(*Texture); ok && tex != nil {
			d.TextureColor = tex.Handle
		}
	}
	if t.TextureMask != nil {
		if tex, ok := t.TextureMask.Payload().(*Texture); ok && tex != nil {
			d.TextureMask = tex.Handle
		}
	}
	return d
}
