package anim

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"runtime"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/rt"
)

// MaxInfluences is the number of joints that may move one vertex.
const MaxInfluences = 4

// DefaultBatchSize is the number of vertices skinned per task.
const DefaultBatchSize = 256

// Skinner errors.
var (
	ErrNoBones = errors.New("anim: no bone palette uploaded")
	ErrBusy    = errors.New("anim: skin pass already running")
)

// Vertex is a rest-pose vertex bound to up to four joints. Weights are
// normalized by NewSkinner.
type Vertex struct {
	Position mgl32.Vec3
	Joints   [MaxInfluences]int
	Weights  [MaxInfluences]float32
}

// Skinner deforms a vertex set with linear blend skinning. It implements
// rt.SkinPass: UploadBones selects the baked palette for a frame, Run
// starts the deformation in the background and Wait blocks until it is
// done.
type Skinner struct {
	baked *Baked
	rest  []Vertex
	out   []mgl32.Vec3
	batch int

	mu      sync.Mutex
	palette Palette
	running chan struct{}
	err     error
}

var _ rt.SkinPass = (*Skinner)(nil)

// NewSkinner validates the vertices against the baked clip's joints.
// batch <= 0 selects DefaultBatchSize.
func NewSkinner(baked *Baked, verts []Vertex, batch int) (*Skinner, error) {
	if baked == nil || baked.Len() == 0 {
		return nil, ErrNoBones
	}
	joints := len(baked.Frames[0])
	rest := make([]Vertex, len(verts))
	for i, v := range verts {
		var sum float32
		for k := range MaxInfluences {
			if v.Weights[k] == 0 {
				continue
			}
			if v.Joints[k] < 0 || v.Joints[k] >= joints {
				return nil, fmt.Errorf("anim: vertex %d influence %d targets joint %d of %d", i, k, v.Joints[k], joints)
			}
			sum += v.Weights[k]
		}
		if sum <= 0 {
			return nil, fmt.Errorf("anim: vertex %d has no positive weight", i)
		}
		for k := range MaxInfluences {
			v.Weights[k] /= sum
		}
		rest[i] = v
	}
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Skinner{
		baked: baked,
		rest:  rest,
		out:   make([]mgl32.Vec3, len(rest)),
		batch: batch,
	}, nil
}

// UploadBones selects the palette of frame, wrapping around the clip.
func (s *Skinner) UploadBones(frame int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != nil {
		return ErrBusy
	}
	s.palette = s.baked.Frame(frame)
	return nil
}

// Run starts skinning with the uploaded palette and returns immediately.
func (s *Skinner) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running != nil {
		s.mu.Unlock()
		return ErrBusy
	}
	if s.palette == nil {
		s.mu.Unlock()
		return ErrNoBones
	}
	done := make(chan struct{})
	s.running = done
	s.err = nil
	palette := s.palette
	s.mu.Unlock()

	go func() {
		err := s.skin(ctx, palette)
		s.mu.Lock()
		s.err = err
		s.running = nil
		s.mu.Unlock()
		close(done)
	}()
	return nil
}

func (s *Skinner) skin(ctx context.Context, palette Palette) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for lo := 0; lo < len(s.rest); lo += s.batch {
		hi := min(lo+s.batch, len(s.rest))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			skinRange(palette, s.rest[lo:hi], s.out[lo:hi])
			return nil
		})
	}
	return g.Wait()
}

func skinRange(palette Palette, rest []Vertex, out []mgl32.Vec3) {
	for i, v := range rest {
		p := v.Position.Vec4(1)
		var acc mgl32.Vec4
		for k := range MaxInfluences {
			if w := v.Weights[k]; w != 0 {
				acc = acc.Add(palette[v.Joints[k]].Mul4x1(p).Mul(w))
			}
		}
		out[i] = acc.Vec3()
	}
}

// Wait blocks until the running pass finishes or ctx is done, and returns
// the pass error. Without a running pass it returns the last result.
func (s *Skinner) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.running
	err := s.err
	s.mu.Unlock()
	if done == nil {
		return err
	}

	select {
	case <-done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Vertices returns a copy of the skinned positions. Call it after Wait.
func (s *Skinner) Vertices() []mgl32.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]mgl32.Vec3, len(s.out))
	copy(out, s.out)
	return out
}

// ChainVertices places perVertex vertices along each bone of a chain
// built by NewChain, weighted between the bone's two end joints.
func ChainVertices(s *Skeleton, length float32, perBone int) []Vertex {
	var verts []Vertex
	for j := 0; j+1 < s.Len(); j++ {
		for k := range perBone {
			f := float32(k) / float32(perBone)
			verts = append(verts, Vertex{
				Position: mgl32.Vec3{(float32(j) + f) * length, 0, 0},
				Joints:   [MaxInfluences]int{j, j + 1},
				Weights:  [MaxInfluences]float32{1 - f, f},
			})
		}
	}
	return verts
}

// MarkerSpheres turns skinned positions into equal surface spheres,
// offset by origin, for display by the tracer.
func MarkerSpheres(positions []mgl32.Vec3, origin mgl32.Vec3, radius float32, c color.RGBA) []rt.Sphere {
	out := make([]rt.Sphere, len(positions))
	for i, p := range positions {
		out[i] = rt.Sphere{Center: origin.Add(p), Radius: radius, Color: c}
	}
	return out
}
