// Package anim provides the skinning side-channel of the tracer: joint
// hierarchies, keyframe clips baked into per-frame bone palettes, and a
// CPU linear-blend skinner that plugs into rt.Renderer.RenderFrame.
//
// The tracer never reads skinning output directly. A caller turns the
// skinned vertices into spheres (see MarkerSpheres) and sets a new scene,
// so the only contract with the renderer is the SkinPass sequencing.
package anim

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Skeleton errors.
var (
	ErrEmptySkeleton = errors.New("anim: skeleton has no joints")
	ErrJointOrder    = errors.New("anim: joint parent must precede the joint")
)

// Transform is a decomposed local transform.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: mgl32.QuatIdent(), Scale: mgl32.Vec3{1, 1, 1}}
}

// Mat4 composes translation * rotation * scale.
func (t Transform) Mat4() mgl32.Mat4 {
	tr := mgl32.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2])
	sc := mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	return tr.Mul4(t.Rotation.Normalize().Mat4()).Mul4(sc)
}

// Joint is one bone. Parent is the index of the parent joint, or -1.
type Joint struct {
	Name        string
	Parent      int
	Rest        Transform
	InverseBind mgl32.Mat4
}

// Skeleton is a joint hierarchy stored parents first.
type Skeleton struct {
	Joints []Joint
}

// NewSkeleton validates the hierarchy. Every parent index must be smaller
// than its child's so that one forward pass resolves global transforms.
func NewSkeleton(joints []Joint) (*Skeleton, error) {
	if len(joints) == 0 {
		return nil, ErrEmptySkeleton
	}
	for i, j := range joints {
		if j.Parent >= i || j.Parent < -1 {
			return nil, fmt.Errorf("%w: joint %d (%q) has parent %d", ErrJointOrder, i, j.Name, j.Parent)
		}
	}
	return &Skeleton{Joints: joints}, nil
}

// Len returns the number of joints.
func (s *Skeleton) Len() int { return len(s.Joints) }

// BindRestPose sets every InverseBind to the inverse of the joint's global
// rest transform, so the rest pose skins to the identity.
func (s *Skeleton) BindRestPose() {
	locals := make([]mgl32.Mat4, len(s.Joints))
	for i, j := range s.Joints {
		locals[i] = j.Rest.Mat4()
	}
	globals := s.globals(locals, nil)
	for i := range s.Joints {
		s.Joints[i].InverseBind = globals[i].Inv()
	}
}

// globals resolves local joint matrices into model space. dst is reused
// when large enough.
func (s *Skeleton) globals(locals, dst []mgl32.Mat4) []mgl32.Mat4 {
	if cap(dst) < len(locals) {
		dst = make([]mgl32.Mat4, len(locals))
	}
	dst = dst[:len(locals)]
	for i, j := range s.Joints {
		if j.Parent < 0 {
			dst[i] = locals[i]
			continue
		}
		dst[i] = dst[j.Parent].Mul4(locals[i])
	}
	return dst
}

// NewChain returns a straight chain of n joints along +x, each length
// units from its parent, with inverse bind matrices set to the rest pose.
func NewChain(n int, length float32) (*Skeleton, error) {
	joints := make([]Joint, n)
	for i := range joints {
		rest := Identity()
		if i > 0 {
			rest.Translation = mgl32.Vec3{length, 0, 0}
		}
		joints[i] = Joint{Name: fmt.Sprintf("joint%d", i), Parent: i - 1, Rest: rest}
	}
	s, err := NewSkeleton(joints)
	if err != nil {
		return nil, err
	}
	s.BindRestPose()
	return s, nil
}
