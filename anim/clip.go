package anim

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Clip errors.
var (
	ErrNoKeyframes = errors.New("anim: track has no keyframes")
	ErrBadFPS      = errors.New("anim: frame rate must be positive")
)

// Keyframe is a joint pose at a time in seconds.
type Keyframe struct {
	Time float32
	Transform
}

// Track animates one joint. Keys are sorted by time.
type Track struct {
	Joint int
	Keys  []Keyframe
}

// Sample interpolates the track at time t: translation and scale
// linearly, rotation by slerp. Times outside the keys clamp to the ends.
func (tr *Track) Sample(t float32) Transform {
	keys := tr.Keys
	if t <= keys[0].Time {
		return keys[0].Transform
	}
	last := len(keys) - 1
	if t >= keys[last].Time {
		return keys[last].Transform
	}

	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	a, b := keys[i-1], keys[i]
	f := (t - a.Time) / (b.Time - a.Time)
	return Transform{
		Translation: lerp(a.Translation, b.Translation, f),
		Rotation:    mgl32.QuatSlerp(a.Rotation, b.Rotation, f),
		Scale:       lerp(a.Scale, b.Scale, f),
	}
}

func lerp(a, b mgl32.Vec3, f float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(f))
}

// Clip is a set of tracks played over Duration seconds. Joints without a
// track keep their rest transform.
type Clip struct {
	Name     string
	Duration float32
	Loop     bool
	Tracks   []Track
}

// Validate checks track joints against the skeleton and sorts the keys.
func (c *Clip) Validate(s *Skeleton) error {
	for i := range c.Tracks {
		tr := &c.Tracks[i]
		if len(tr.Keys) == 0 {
			return fmt.Errorf("%w: clip %q track %d", ErrNoKeyframes, c.Name, i)
		}
		if tr.Joint < 0 || tr.Joint >= s.Len() {
			return fmt.Errorf("anim: clip %q track %d targets joint %d of %d", c.Name, i, tr.Joint, s.Len())
		}
		sort.SliceStable(tr.Keys, func(a, b int) bool { return tr.Keys[a].Time < tr.Keys[b].Time })
	}
	return nil
}

// Palette holds one skinning matrix per joint: global pose times inverse bind.
type Palette []mgl32.Mat4

// Pose computes the palette of clip c at time t into dst, which is
// reused when large enough. Looping clips wrap t into [0, Duration).
func (c *Clip) Pose(s *Skeleton, t float32, dst Palette) Palette {
	if c.Loop && c.Duration > 0 {
		t = float32(math.Mod(float64(t), float64(c.Duration)))
		if t < 0 {
			t += c.Duration
		}
	}

	locals := make([]mgl32.Mat4, s.Len())
	for i, j := range s.Joints {
		locals[i] = j.Rest.Mat4()
	}
	for i := range c.Tracks {
		tr := &c.Tracks[i]
		locals[tr.Joint] = tr.Sample(t).Mat4()
	}

	globals := s.globals(locals, dst)
	for i, j := range s.Joints {
		globals[i] = globals[i].Mul4(j.InverseBind)
	}
	return globals
}

// Baked is a clip sampled at a fixed frame rate.
type Baked struct {
	FPS    float32
	Frames []Palette
}

// Bake samples c at fps frames per second, at least one frame.
func Bake(s *Skeleton, c *Clip, fps float32) (*Baked, error) {
	if fps <= 0 {
		return nil, ErrBadFPS
	}
	if err := c.Validate(s); err != nil {
		return nil, err
	}

	n := max(1, int(math.Ceil(float64(c.Duration*fps))))
	b := &Baked{FPS: fps, Frames: make([]Palette, n)}
	for i := range b.Frames {
		b.Frames[i] = c.Pose(s, float32(i)/fps, nil)
	}
	return b, nil
}

// Len returns the number of baked frames.
func (b *Baked) Len() int { return len(b.Frames) }

// Frame returns the palette for frame i, wrapping around the clip.
func (b *Baked) Frame(i int) Palette {
	n := len(b.Frames)
	return b.Frames[((i%n)+n)%n]
}

// NewWave returns a looping clip that bends every joint of a chain about
// +z by up to amplitude radians, phase shifted along the chain.
func NewWave(s *Skeleton, duration, amplitude float32) *Clip {
	const keys = 8
	c := &Clip{Name: "wave", Duration: duration, Loop: true}
	for j := 1; j < s.Len(); j++ {
		tr := Track{Joint: j, Keys: make([]Keyframe, keys+1)}
		for k := range tr.Keys {
			phase := 2*math.Pi*float64(k)/keys + float64(j)*0.5
			rest := s.Joints[j].Rest
			rest.Rotation = mgl32.QuatRotate(amplitude*float32(math.Sin(phase)), mgl32.Vec3{0, 0, 1})
			tr.Keys[k] = Keyframe{Time: duration * float32(k) / keys, Transform: rest}
		}
		c.Tracks = append(c.Tracks, tr)
	}
	return c
}
