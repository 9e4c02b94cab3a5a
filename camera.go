package rt

import "github.com/go-gl/mathgl/mgl32"

// minBasisLen is the shortest forward or right vector accepted as a basis.
const minBasisLen = 1e-6

// Camera places the viewer in world space. The tracer looks down the local
// +x axis with +y to the right and +z up, so a Camera converts world
// spheres into that frame before upload.
type Camera struct {
	Position mgl32.Vec3
	Forward  mgl32.Vec3
	Up       mgl32.Vec3
}

// LookAt returns a camera at eye facing target.
func LookAt(eye, target, up mgl32.Vec3) Camera {
	return Camera{Position: eye, Forward: target.Sub(eye), Up: up}
}

// Orbit returns a camera circling target in the world XY plane at the given
// radius and angle (radians), raised by height, looking at target with +z up.
func Orbit(target mgl32.Vec3, radius, angle, height float32) Camera {
	offset := mgl32.Rotate3DZ(angle).Mul3x1(mgl32.Vec3{radius, 0, height})
	eye := target.Add(offset)
	return LookAt(eye, target, mgl32.Vec3{0, 0, 1})
}

// Basis returns the orthonormal forward, right and up vectors.
func (c Camera) Basis() (forward, right, up mgl32.Vec3, err error) {
	if c.Forward.Len() < minBasisLen {
		return forward, right, up, ErrDegenerateCamera
	}
	forward = c.Forward.Normalize()
	right = forward.Cross(c.Up)
	if right.Len() < minBasisLen {
		return forward, right, up, ErrDegenerateCamera
	}
	right = right.Normalize()
	up = right.Cross(forward)
	return forward, right, up, nil
}

// View returns the matrix taking world offsets from the camera position
// into camera-local coordinates.
func (c Camera) View() (mgl32.Mat3, error) {
	f, r, u, err := c.Basis()
	if err != nil {
		return mgl32.Mat3{}, err
	}
	return mgl32.Mat3FromRows(f, r, u), nil
}

// ToLocal returns a copy of s with every center expressed in camera-local
// coordinates. Radii and colors are unchanged.
func (c Camera) ToLocal(s *Scene) (*Scene, error) {
	view, err := c.View()
	if err != nil {
		return nil, err
	}
	out := s.Clone()
	for i, p := range out.Positions {
		out.Positions[i] = view.Mul3x1(p.Sub(c.Position))
	}
	return out, nil
}
