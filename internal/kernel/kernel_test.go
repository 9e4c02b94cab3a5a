// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import (
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
)

// sceneOf builds a kernel scene from surfaces followed by lights.
func sceneOf(surfaces, lights []sphere) Scene {
	all := append(append([]sphere{}, surfaces...), lights...)
	centers := make([]mgl32.Vec3, len(all))
	radii := make([]float32, len(all))
	colors := make([]color.RGBA, len(all))
	for i, s := range all {
		centers[i] = s.c
		radii[i] = s.r
		colors[i] = s.col
	}
	return Split(centers, radii, colors, len(surfaces))
}

type sphere struct {
	c   mgl32.Vec3
	r   float32
	col color.RGBA
}

func center(w, h int) int { return (h/2)*w + w/2 }

// =============================================================================
// Ray generation
// =============================================================================

func TestPixelRay(t *testing.T) {
	r := PixelRay(0, Params{Width: 4, Height: 2})
	want := mgl32.Vec3{4, -2, 1}
	l := float32(math.Sqrt(21))
	for k := 0; k < 3; k++ {
		if math.Abs(float64(r.Dir[k]-want[k]/l)) > 1e-6 {
			t.Errorf("Dir[%d] = %v, want %v", k, r.Dir[k], want[k]/l)
		}
	}
	if got := r.Dir.Len(); math.Abs(float64(got-1)) > 1e-6 {
		t.Errorf("|Dir| = %v, want 1", got)
	}
}

func TestPixelRayCenterIsForward(t *testing.T) {
	r := PixelRay(center(64, 64), Params{Width: 64, Height: 64})
	if r.Dir != (mgl32.Vec3{1, 0, 0}) {
		t.Errorf("center Dir = %v, want [1 0 0]", r.Dir)
	}
}

func TestPixelRayOrientation(t *testing.T) {
	params := Params{Width: 10, Height: 10}
	// Last pixel of the first row: right of center and above it.
	r := PixelRay(9, params)
	if r.Dir[1] <= 0 {
		t.Errorf("right column Dir.y = %v, want > 0", r.Dir[1])
	}
	if r.Dir[2] <= 0 {
		t.Errorf("top row Dir.z = %v, want > 0", r.Dir[2])
	}
	// First pixel of the last row: left and below.
	r = PixelRay(90, params)
	if r.Dir[1] >= 0 || r.Dir[2] >= 0 {
		t.Errorf("bottom-left Dir = %v, want y < 0 and z < 0", r.Dir)
	}
}

// =============================================================================
// Intersection
// =============================================================================

func TestIntersect(t *testing.T) {
	forward := mgl32.Vec3{1, 0, 0}
	tests := []struct {
		name   string
		center mgl32.Vec3
		radius float32
		want   float32
	}{
		{"front", mgl32.Vec3{5, 0, 0}, 1, 4},
		{"tangent", mgl32.Vec3{5, 1, 0}, 1, 5},
		{"miss", mgl32.Vec3{5, 5, 0}, 1, SentinelDistance},
		{"behind", mgl32.Vec3{-5, 0, 0}, 1, SentinelDistance},
		{"camera inside", mgl32.Vec3{0, 0, 0}, 2, SentinelDistance},
		{"beyond sentinel", mgl32.Vec3{200, 0, 0}, 1, 199},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Intersect(forward, tt.center, tt.radius)
			if math.Abs(float64(got-tt.want)) > 1e-4 {
				t.Errorf("Intersect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNearestBeyondSentinelIsMiss(t *testing.T) {
	s := sceneOf([]sphere{{c: mgl32.Vec3{200, 0, 0}, r: 1}}, nil)
	if got := Nearest(mgl32.Vec3{1, 0, 0}, &s); got != Miss {
		t.Errorf("Nearest() = %+v, want %+v", got, Miss)
	}
}

func TestNearestTieBreak(t *testing.T) {
	at5 := mgl32.Vec3{5, 0, 0}
	tests := []struct {
		name     string
		surfaces []sphere
		lights   []sphere
		want     Hit
	}{
		{
			name:     "surface beats equal light",
			surfaces: []sphere{{c: at5, r: 1}},
			lights:   []sphere{{c: at5, r: 1}},
			want:     Hit{Kind: HitSurface, Index: 0, Distance: 4},
		},
		{
			name:     "first of equal surfaces",
			surfaces: []sphere{{c: mgl32.Vec3{9, 0, 0}, r: 1}, {c: at5, r: 1}, {c: at5, r: 1}},
			want:     Hit{Kind: HitSurface, Index: 1, Distance: 4},
		},
		{
			name:     "nearer light wins",
			surfaces: []sphere{{c: mgl32.Vec3{10, 0, 0}, r: 1}},
			lights:   []sphere{{c: mgl32.Vec3{20, 0, 0}, r: 1}, {c: at5, r: 1}},
			want:     Hit{Kind: HitLight, Index: 1, Distance: 4},
		},
		{
			name: "all miss",
			surfaces: []sphere{{c: mgl32.Vec3{0, 5, 0}, r: 1}},
			lights:   []sphere{{c: mgl32.Vec3{0, 0, 5}, r: 1}},
			want:     Miss,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sceneOf(tt.surfaces, tt.lights)
			got := Nearest(mgl32.Vec3{1, 0, 0}, &s)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Nearest() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNearestDeterministic(t *testing.T) {
	s := sceneOf(
		[]sphere{{c: mgl32.Vec3{6, 0.5, 0}, r: 1}, {c: mgl32.Vec3{6, -0.5, 0}, r: 1}},
		[]sphere{{c: mgl32.Vec3{6, 0, 0.5}, r: 1}},
	)
	params := Params{Width: 32, Height: 32}
	for p := 0; p < params.Width*params.Height; p++ {
		dir := PixelRay(p, params).Dir
		first := Nearest(dir, &s)
		for i := 0; i < 3; i++ {
			if got := Nearest(dir, &s); got != first {
				t.Fatalf("pixel %d: Nearest() = %+v on rerun, want %+v", p, got, first)
			}
		}
	}
}

// =============================================================================
// Shading
// =============================================================================

func TestCenteredSphereBaseline(t *testing.T) {
	s := sceneOf([]sphere{{c: mgl32.Vec3{5, 0, 0}, r: 1, col: color.RGBA{200, 10, 10, 255}}}, nil)
	params := Params{Width: 64, Height: 64}
	p := center(64, 64)

	hit := Nearest(PixelRay(p, params).Dir, &s)
	if want := (Hit{Kind: HitSurface, Index: 0, Distance: 4}); hit != want {
		t.Errorf("Nearest() = %+v, want %+v", hit, want)
	}
	got := TracePixel(p, params, &s)
	want := color.RGBA{204, 77, 77, 255}
	if got != want {
		t.Errorf("TracePixel(center) = %v, want %v", got, want)
	}
}

func TestLightRendersFlatColor(t *testing.T) {
	s := sceneOf(nil, []sphere{{c: mgl32.Vec3{5, 0, 0}, r: 1, col: color.RGBA{10, 20, 30, 0}}})
	params := Params{Width: 64, Height: 64}
	got := TracePixel(center(64, 64), params, &s)
	if want := (color.RGBA{10, 20, 30, 255}); got != want {
		t.Errorf("TracePixel(light) = %v, want %v", got, want)
	}
}

func TestMissIsOpaqueAmbient(t *testing.T) {
	s := sceneOf([]sphere{{c: mgl32.Vec3{-5, 0, 0}, r: 1}}, nil)
	params := Params{Width: 16, Height: 9}
	for p := 0; p < params.Width*params.Height; p++ {
		r := PixelRay(p, params)
		got := TracePixel(p, params, &s)
		if got.A != 255 {
			t.Errorf("pixel %d: alpha = %d, want 255", p, got.A)
		}
		if want := Ambient(r); got != want {
			t.Errorf("pixel %d: TracePixel() = %v, want %v", p, got, want)
		}
	}
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		v    float32
		want uint8
	}{
		{-1, 0},
		{0, 0},
		{0.5, 128},
		{0.3, 77},
		{0.8, 204},
		{1, 255},
		{2, 255},
		{float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		if got := Quantize(tt.v); got != tt.want {
			t.Errorf("Quantize(%v) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

func TestQuantizeRoundTrip(t *testing.T) {
	for b := 0; b < 256; b++ {
		once := Quantize(Dequantize(uint8(b)))
		if once != uint8(b) {
			t.Errorf("Quantize(Dequantize(%d)) = %d", b, once)
		}
		if twice := Quantize(Dequantize(once)); twice != once {
			t.Errorf("second round trip of %d = %d, want %d", b, twice, once)
		}
	}
}

// =============================================================================
// Trace
// =============================================================================

func TestEmptySceneSinglePixel(t *testing.T) {
	var s Scene
	for _, params := range []Params{{1, 1}, {64, 48}, {1920, 1080}} {
		if got := OutputPixels(params, &s); got != 1 {
			t.Errorf("OutputPixels(%v) = %d, want 1", params, got)
		}
		dst := make([]byte, 4)
		if n := Trace(params, &s, dst); n != 1 {
			t.Errorf("Trace(%v) = %d, want 1", params, n)
		}
		want := Ambient(PixelRay(0, params))
		if got := (color.RGBA{dst[0], dst[1], dst[2], dst[3]}); got != want {
			t.Errorf("Trace(%v) pixel = %v, want %v", params, got, want)
		}
	}
}

func TestTraceRangeMatchesTracePixel(t *testing.T) {
	s := sceneOf(
		[]sphere{{c: mgl32.Vec3{8, 1, 0}, r: 2}},
		[]sphere{{c: mgl32.Vec3{6, -2, 1}, r: 1, col: color.RGBA{255, 255, 0, 255}}},
	)
	params := Params{Width: 20, Height: 10}
	dst := make([]byte, 4*params.Width*params.Height)
	TraceRange(0, 100, params, &s, dst)
	TraceRange(100, 200, params, &s, dst)
	for p := 0; p < 200; p++ {
		want := TracePixel(p, params, &s)
		got := color.RGBA{dst[4*p], dst[4*p+1], dst[4*p+2], dst[4*p+3]}
		if got != want {
			t.Fatalf("pixel %d = %v, want %v", p, got, want)
		}
	}
}

func TestScaleInvariance(t *testing.T) {
	s := sceneOf(
		[]sphere{{c: mgl32.Vec3{10, 2, 1}, r: 2}, {c: mgl32.Vec3{12, -3, -1}, r: 3}},
		[]sphere{{c: mgl32.Vec3{8, 0, 3}, r: 1}},
	)
	small := Params{Width: 24, Height: 18}
	big := Params{Width: 48, Height: 36}
	if OutputPixels(big, &s) != 4*OutputPixels(small, &s) {
		t.Fatalf("OutputPixels(big) = %d, want %d", OutputPixels(big, &s), 4*OutputPixels(small, &s))
	}
	for y := 0; y < small.Height; y++ {
		for x := 0; x < small.Width; x++ {
			hs := Nearest(PixelRay(y*small.Width+x, small).Dir, &s)
			hb := Nearest(PixelRay(2*y*big.Width+2*x, big).Dir, &s)
			if diff := cmp.Diff(hs, hb); diff != "" {
				t.Errorf("(%d,%d) hit differs after scaling (-small +big):\n%s", x, y, diff)
			}
		}
	}
}

func TestHitKindString(t *testing.T) {
	tests := []struct {
		k    HitKind
		want string
	}{
		{HitNone, "none"},
		{HitSurface, "surface"},
		{HitLight, "light"},
		{HitKind(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("HitKind(%d).String() = %q, want %q", tt.k, got, tt.want)
		}
	}
}
