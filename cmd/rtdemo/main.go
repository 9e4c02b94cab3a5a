// Command rtdemo traces a sphere scene and writes the frames as PNG files.
//
// The camera orbits the centre of the scene over -frames frames. With
// -skin, a waving chain of marker spheres driven by the anim skinner is
// added to the scene and updated through Renderer.RenderFrame.
//
//	rtdemo -preset grid -n 5 -frames 24 -out grid.png
//	rtdemo -scene scene.yaml -width 320 -height 240 -scale 2
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/rt"
	"github.com/gogpu/rt/anim"
	_ "github.com/gogpu/rt/gpu" // trace on the GPU when one is available
	"github.com/gogpu/rt/scenes"
)

type config struct {
	width, height int
	scene         string
	preset        string
	n             int
	seed          uint64
	frames        int
	out           string
	scale         int
	cpu           bool
	skin          bool
	verbose       bool
}

func parseFlags(args []string) (config, error) {
	var c config
	fs := flag.NewFlagSet("rtdemo", flag.ContinueOnError)
	fs.IntVar(&c.width, "width", 320, "image width")
	fs.IntVar(&c.height, "height", 240, "image height")
	fs.StringVar(&c.scene, "scene", "", "YAML scene file (overrides -preset)")
	fs.StringVar(&c.preset, "preset", "default", "preset scene: default, grid or random")
	fs.IntVar(&c.n, "n", 4, "grid size or random sphere count")
	fs.Uint64Var(&c.seed, "seed", 1, "random preset seed")
	fs.IntVar(&c.frames, "frames", 1, "number of frames to render")
	fs.StringVar(&c.out, "out", "rtdemo.png", "output file; frames get a _NNN suffix")
	fs.IntVar(&c.scale, "scale", 1, "integer upscale factor applied before encoding")
	fs.BoolVar(&c.cpu, "cpu", false, "force the software backend")
	fs.BoolVar(&c.skin, "skin", false, "add a skinned marker chain")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if c.width <= 0 || c.height <= 0 || c.frames <= 0 || c.scale <= 0 {
		return c, errors.New("width, height, frames and scale must be positive")
	}
	return c, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "rtdemo:", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	rt.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("rtdemo failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	file, err := loadScene(cfg)
	if err != nil {
		return err
	}
	world, cam, err := file.Build()
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}

	var opts []rt.Option
	if cfg.cpu {
		opts = append(opts, rt.WithBackend(rt.NewSoftwareBackend(0)))
	}
	r, err := rt.NewRenderer(opts...)
	if err != nil {
		return err
	}
	defer r.Close() //nolint:errcheck // Close never fails
	logger.Info("tracing",
		"backend", r.Backend().Name(), "surfaces", world.NumSurfaces, "lights", world.NumLights,
		"size", fmt.Sprintf("%dx%d", cfg.width, cfg.height), "frames", cfg.frames)

	orbit := newOrbit(cam, world)

	var chain *markerChain
	if cfg.skin {
		if chain, err = newMarkerChain(orbit.target); err != nil {
			return err
		}
		// Skin frame 0 up front; each RenderFrame then prepares the next one.
		if err := r.Sync(func() error { return chain.prime(ctx) }); err != nil {
			return fmt.Errorf("skin frame 0: %w", err)
		}
	}

	w, wctx := newFrameWriter(ctx, cfg.scale)

	for i := range cfg.frames {
		if wctx.Err() != nil {
			break
		}
		scene := world
		if chain != nil {
			scene = chain.addTo(world)
		}
		local, err := orbit.at(i, cfg.frames).ToLocal(scene)
		if err != nil {
			return w.abort(fmt.Errorf("frame %d: %w", i, err))
		}
		if err := r.SetScene(local); err != nil {
			return w.abort(fmt.Errorf("frame %d: %w", i, err))
		}

		var f *rt.Frame
		if chain != nil {
			f, err = r.RenderFrame(ctx, chain.skinner, i+1, cfg.width, cfg.height)
		} else {
			f, err = r.Render(ctx, cfg.width, cfg.height)
		}
		if err != nil {
			return w.abort(fmt.Errorf("frame %d: %w", i, err))
		}
		w.write(framePath(cfg.out, i, cfg.frames), f)
	}
	if err := w.wait(); err != nil {
		return err
	}

	st := r.Stats()
	logger.Info("done", "backend", st.Backend, "frames", st.Frames, "uploads", st.Uploads, "lastDispatch", st.LastDispatch)
	return nil
}

func loadScene(cfg config) (*scenes.File, error) {
	if cfg.scene != "" {
		return scenes.Load(cfg.scene)
	}
	f, ok := scenes.Preset(cfg.preset, cfg.n, cfg.seed)
	if !ok {
		return nil, fmt.Errorf("unknown preset %q", cfg.preset)
	}
	return f, nil
}

// orbit circles the camera around the centroid of the scene, keeping the
// camera's horizontal distance and height. An empty scene orbits the
// camera's look-at point.
type orbit struct {
	target mgl32.Vec3
	radius float32
	height float32
	angle  float32
}

func newOrbit(c rt.Camera, world *rt.Scene) orbit {
	target := c.Position.Add(c.Forward)
	if n := world.Len(); n > 0 {
		var sum mgl32.Vec3
		for _, p := range world.Positions {
			sum = sum.Add(p)
		}
		target = sum.Mul(1 / float32(n))
	}
	off := c.Position.Sub(target)
	return orbit{
		target: target,
		radius: mgl32.Vec2{off[0], off[1]}.Len(),
		height: off[2],
		angle:  float32(math.Atan2(float64(off[1]), float64(off[0]))),
	}
}

func (o orbit) at(i, n int) rt.Camera {
	return rt.Orbit(o.target, o.radius, o.angle+2*math.Pi*float32(i)/float32(n), o.height)
}

// markerChain is a waving bone chain shown as small spheres.
type markerChain struct {
	skinner *anim.Skinner
	origin  mgl32.Vec3
}

func newMarkerChain(target mgl32.Vec3) (*markerChain, error) {
	const (
		joints = 6
		length = 1.5
	)
	sk, err := anim.NewChain(joints, length)
	if err != nil {
		return nil, err
	}
	baked, err := anim.Bake(sk, anim.NewWave(sk, 2, 0.4), 12)
	if err != nil {
		return nil, err
	}
	skinner, err := anim.NewSkinner(baked, anim.ChainVertices(sk, length, 3), 0)
	if err != nil {
		return nil, err
	}
	return &markerChain{
		skinner: skinner,
		origin:  target.Add(mgl32.Vec3{-length * (joints - 1) / 2, 0, 3}),
	}, nil
}

func (m *markerChain) prime(ctx context.Context) error {
	if err := m.skinner.UploadBones(0); err != nil {
		return err
	}
	if err := m.skinner.Run(ctx); err != nil {
		return err
	}
	return m.skinner.Wait(ctx)
}

func (m *markerChain) addTo(world *rt.Scene) *rt.Scene {
	var b rt.SceneBuilder
	for _, s := range world.Surfaces() {
		b.AddSurface(s)
	}
	for _, s := range anim.MarkerSpheres(m.skinner.Vertices(), m.origin, 0.3, color.RGBA{240, 200, 40, 255}) {
		b.AddSurface(s)
	}
	for _, s := range world.Lights() {
		b.AddLight(s)
	}
	s, _ := b.Build() //nolint:errcheck // built from valid spheres
	return s
}

func framePath(out string, i, n int) string {
	if n == 1 {
		return out
	}
	ext := filepath.Ext(out)
	return fmt.Sprintf("%s_%03d%s", strings.TrimSuffix(out, ext), i, ext)
}

// frameWriter encodes frames concurrently, at most GOMAXPROCS at a time.
// Every return path of the render loop must go through wait or abort so
// no PNG is left half written when the process exits.
type frameWriter struct {
	g     *errgroup.Group
	scale int
}

func newFrameWriter(ctx context.Context, scale int) (*frameWriter, context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	return &frameWriter{g: g, scale: scale}, gctx
}

func (w *frameWriter) write(path string, f *rt.Frame) {
	w.g.Go(func() error { return writePNG(path, f, w.scale) })
}

func (w *frameWriter) wait() error { return w.g.Wait() }

// abort waits for pending writes and returns err joined with any write error.
func (w *frameWriter) abort(err error) error {
	return errors.Join(err, w.g.Wait())
}

func writePNG(path string, f *rt.Frame, scale int) error {
	var img image.Image = f.Image()
	if scale > 1 {
		dst := image.NewRGBA(image.Rect(0, 0, f.Width*scale, f.Height*scale))
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		img = dst
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return out.Close()
}
