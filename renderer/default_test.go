package renderer

import (
	"testing"

	"github.com/achernar/stardust/scene"
	"github.com/achernar/stardust/tracer"
	"github.com/achernar/stardust/types"
)

func TestFilteredDevices(t *testing.T) {
	devList, err := filteredDevices(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(devList) != 1 {
		t.Fatalf("expected platform to expose 1 device; got %d", len(devList))
	}

	devList, err = filteredDevices(Options{BlackListedDevices: []string{"CPU"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(devList) != 0 {
		t.Fatalf("expected blacklist to drop all devices; got %d", len(devList))
	}

	devList, err = filteredDevices(Options{ForcePrimaryDevice: "CPU"})
	if err != nil {
		t.Fatal(err)
	}
	if len(devList) != 1 {
		t.Fatalf("expected 1 device; got %d", len(devList))
	}
}

func TestNewDefaultErrors(t *testing.T) {
	opts := testRenderOptions()

	if _, err := NewDefault(nil, tracer.NaiveScheduler(), nil, opts); err != ErrSceneNotDefined {
		t.Fatalf("expected to get ErrSceneNotDefined; got %v", err)
	}

	sc := createRenderTestScene()
	sc.Camera = nil
	if _, err := NewDefault(sc, tracer.NaiveScheduler(), nil, opts); err != ErrCameraNotDefined {
		t.Fatalf("expected to get ErrCameraNotDefined; got %v", err)
	}

	opts.BlackListedDevices = []string{"CPU"}
	if _, err := NewDefault(createRenderTestScene(), tracer.NaiveScheduler(), nil, opts); err != ErrNoTracers {
		t.Fatalf("expected to get ErrNoTracers; got %v", err)
	}
}

func TestDefaultRendererSingleFrame(t *testing.T) {
	r := createTestRenderer(t)
	defer r.Close()

	if err := r.Render(); err != nil {
		t.Fatal(err)
	}

	stats := r.Stats()
	if len(stats.Tracers) != 1 {
		t.Fatalf("expected stats for 1 tracer; got %d", len(stats.Tracers))
	}
	if !stats.Tracers[0].IsPrimary {
		t.Fatal("expected the first tracer to be flagged as primary")
	}
	if stats.Tracers[0].BlockH != r.options.FrameH {
		t.Fatalf("expected a single tracer to render the whole frame; got %d rows", stats.Tracers[0].BlockH)
	}
	if stats.Tracers[0].FramePercent != 100.0 {
		t.Fatalf("expected frame percent to be 100; got %f", stats.Tracers[0].FramePercent)
	}
	if len(stats.Tracers[0].StageTimes) != 4 {
		t.Fatalf("expected 4 stage times; got %d", len(stats.Tracers[0].StageTimes))
	}

	film := r.Film()
	litPixels := 0
	for ofs := 0; ofs < len(film.FrameBuffer); ofs += 4 {
		if film.FrameBuffer[ofs+3] != 255 {
			t.Fatalf("pixel %d: expected alpha to be 255; got %d", ofs/4, film.FrameBuffer[ofs+3])
		}
		if film.FrameBuffer[ofs] != 0 || film.FrameBuffer[ofs+1] != 0 || film.FrameBuffer[ofs+2] != 0 {
			litPixels++
		}
	}
	if litPixels == 0 {
		t.Fatal("expected the rendered frame buffer to contain non-black pixels")
	}
}

func TestDefaultRendererAccumulation(t *testing.T) {
	r := createTestRenderer(t)
	defer r.Close()

	// Frame 0 resets the history; frame 1 blends against it.
	if err := r.Render(); err != nil {
		t.Fatal(err)
	}
	film := r.Film()
	prev := append([]types.Vec3(nil), film.History[1]...)

	if err := r.Render(); err != nil {
		t.Fatal(err)
	}

	for pixel := range film.History[0] {
		if film.History[1][pixel] != prev[pixel] {
			t.Fatalf("pixel %d: expected the history read plane to remain untouched", pixel)
		}

		exp := prev[pixel].Lerp(film.Accumulator[pixel], r.options.Blend)
		if film.History[0][pixel] != exp {
			t.Fatalf("pixel %d: expected blended radiance to be %v; got %v", pixel, exp, film.History[0][pixel])
		}
	}
}

func TestDefaultRendererCameraReset(t *testing.T) {
	r := createTestRenderer(t)
	defer r.Close()

	// Advance two frames so the accumulator is in steady blending state.
	if err := r.Render(); err != nil {
		t.Fatal(err)
	}
	if err := r.Render(); err != nil {
		t.Fatal(err)
	}

	r.sc.Camera.Move(scene.Forward, 1)
	r.UpdateCamera()

	// Frame 2 writes History[1]; the camera change must reset the
	// accumulator so the plane equals the fresh radiance exactly.
	if err := r.Render(); err != nil {
		t.Fatal(err)
	}

	film := r.Film()
	for pixel, exp := range film.Accumulator {
		if film.History[1][pixel] != exp {
			t.Fatalf("pixel %d: expected a camera update to restart accumulation", pixel)
		}
	}
}

func TestDefaultRendererClosed(t *testing.T) {
	r := createTestRenderer(t)
	r.Close()

	// A second close should be a no-op
	r.Close()

	if err := r.Render(); err != ErrInterrupted {
		t.Fatalf("expected to get ErrInterrupted; got %v", err)
	}
}

func createTestRenderer(t *testing.T) *defaultRenderer {
	r, err := NewDefault(createRenderTestScene(), tracer.NaiveScheduler(), nil, testRenderOptions())
	if err != nil {
		t.Fatal(err)
	}
	return r.(*defaultRenderer)
}

func createRenderTestScene() *scene.Scene {
	sc := scene.NewDemoScene(scene.PresetOrbit, 40, 11)
	sc.Camera.SetupProjection(1)
	return sc
}

func testRenderOptions() Options {
	return Options{
		FrameW:          32,
		FrameH:          32,
		SamplesPerPixel: 1,
		NumBounces:      1,
		Exposure:        1,
		Blend:           0.5,
		Seed:            7,
	}
}
