package native

import (
	"bytes"
	"testing"
	"time"

	"github.com/achernar/stardust/scene"
	"github.com/achernar/stardust/tracer"
	"github.com/achernar/stardust/tracer/native/device"
	"github.com/achernar/stardust/types"
)

func TestTracerBlockWorker(t *testing.T) {
	tr := createTestTracer(t)
	defer tr.Close()
}

func TestTracerClose(t *testing.T) {
	tr := createTestTracer(t)
	tr.Close()

	// A second close should be a no-op
	tr.Close()

	if _, err := tr.Trace(&tracer.BlockRequest{}); err != ErrInvalidDevice {
		t.Fatalf("expected to get ErrInvalidDevice; got %v", err)
	}
}

func TestTracerStateGuards(t *testing.T) {
	tr := createTestTracer(t)
	defer tr.Close()

	if _, err := tr.Trace(&tracer.BlockRequest{}); err != ErrNoFilmData {
		t.Fatalf("expected to get ErrNoFilmData; got %v", err)
	}

	err := tr.UpdateState(tracer.Synchronous, tracer.FilmData, tracer.NewFilm(16, 16))
	if err != nil {
		t.Fatal(err)
	}

	if _, err = tr.Trace(&tracer.BlockRequest{}); err != ErrNoSceneData {
		t.Fatalf("expected to get ErrNoSceneData; got %v", err)
	}
}

func TestTracerUpdateStateErrors(t *testing.T) {
	if _, err := NewTracer("test", nil, nil); err != ErrInvalidDevice {
		t.Fatalf("expected to get ErrInvalidDevice; got %v", err)
	}

	tr := createTestTracer(t)
	defer tr.Close()

	specs := []struct {
		changeType tracer.ChangeType
		data       interface{}
	}{
		{tracer.FilmData, "not a film"},
		{tracer.SceneData, 42},
		{tracer.CameraData, nil},
	}
	for specIndex, spec := range specs {
		err := tr.UpdateState(tracer.Synchronous, spec.changeType, spec.data)
		if err != ErrInvalidUpdateData {
			t.Fatalf("[spec %d] expected to get ErrInvalidUpdateData; got %v", specIndex, err)
		}
	}

	err := tr.UpdateState(tracer.Synchronous, tracer.ChangeType(128), nil)
	if err != ErrUnsupportedUpdate {
		t.Fatalf("expected to get ErrUnsupportedUpdate; got %v", err)
	}

	// Synchronous updates require an initialized device
	devList, err := device.SelectDevices(device.CpuDevice, "CPU")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := NewTracer("test-uninitialized", devList[0], nil)
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()

	err = raw.UpdateState(tracer.Synchronous, tracer.FilmData, tracer.NewFilm(8, 8))
	if err != ErrInvalidDevice {
		t.Fatalf("expected to get ErrInvalidDevice; got %v", err)
	}
}

func TestTraceProducesFrame(t *testing.T) {
	tr := createTestTracer(t)
	defer tr.Close()

	film := tracer.NewFilm(64, 64)
	attachTestState(t, tr, film, createTestScene())

	blockReq := testBlockRequest(64, 64)
	if _, err := tr.Trace(&blockReq); err != nil {
		t.Fatal(err)
	}

	stats := tr.Stats()
	if stats.BlockH != blockReq.BlockH {
		t.Fatalf("expected stats.BlockH to be %d; got %d", blockReq.BlockH, stats.BlockH)
	}

	expStages := []string{"accelerator", "integrator", "accumulator", "post-process"}
	if len(stats.StageTimes) != len(expStages) {
		t.Fatalf("expected %d stage times; got %d", len(expStages), len(stats.StageTimes))
	}
	for stageIndex, expName := range expStages {
		if stats.StageTimes[stageIndex].Name != expName {
			t.Fatalf("[stage %d] expected stage name to be %q; got %q", stageIndex, expName, stats.StageTimes[stageIndex].Name)
		}
	}

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
		t.Fatal("expected the traced frame buffer to contain non-black pixels")
	}

	// Frame 0 writes History[1]; a reset frame passes the integrated
	// radiance through unchanged.
	for pixel, exp := range film.Accumulator {
		if film.History[1][pixel] != exp {
			t.Fatalf("pixel %d: expected history plane to equal the accumulator after a reset frame; got %v, want %v", pixel, film.History[1][pixel], exp)
		}
	}
}

func TestTracePartialBlock(t *testing.T) {
	tr := createTestTracer(t)
	defer tr.Close()

	film := tracer.NewFilm(32, 32)
	attachTestState(t, tr, film, createTestScene())

	blockReq := testBlockRequest(32, 32)
	blockReq.BlockY = 8
	blockReq.BlockH = 16
	if _, err := tr.Trace(&blockReq); err != nil {
		t.Fatal(err)
	}

	if stats := tr.Stats(); stats.BlockH != 16 {
		t.Fatalf("expected stats.BlockH to be 16; got %d", stats.BlockH)
	}

	// Only the rows inside the block should have been touched. The
	// tonemapper is the only FrameBuffer writer and always emits an
	// opaque alpha.
	for y := 0; y < 32; y++ {
		rowTouched := false
		for x := 0; x < 32; x++ {
			if film.FrameBuffer[(y*32+x)*4+3] != 0 {
				rowTouched = true
				break
			}
		}

		expTouched := y >= 8 && y < 24
		if rowTouched != expTouched {
			t.Fatalf("row %d: expected touched to be %v; got %v", y, expTouched, rowTouched)
		}
	}
}

func TestTraceIsDeterministic(t *testing.T) {
	tr := createTestTracer(t)
	defer tr.Close()

	film := tracer.NewFilm(32, 32)
	attachTestState(t, tr, film, createTestScene())

	blockReq := testBlockRequest(32, 32)
	blockReq.SamplesPerPixel = 2

	if _, err := tr.Trace(&blockReq); err != nil {
		t.Fatal(err)
	}
	firstPass := append([]uint8(nil), film.FrameBuffer...)

	if _, err := tr.Trace(&blockReq); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(firstPass, film.FrameBuffer) {
		t.Fatal("expected two traces of the same frame to produce identical frame buffers")
	}
}

func TestTraceAccumulatesHistory(t *testing.T) {
	tr := createTestTracer(t)
	defer tr.Close()

	film := tracer.NewFilm(32, 32)
	attachTestState(t, tr, film, createTestScene())

	blockReq := testBlockRequest(32, 32)
	if _, err := tr.Trace(&blockReq); err != nil {
		t.Fatal(err)
	}
	prev := append([]types.Vec3(nil), film.History[1]...)

	// Frame 1 reads the plane frame 0 wrote and blends the fresh
	// radiance into the complementary plane.
	blockReq.FrameIndex = 1
	blockReq.Reset = false
	if _, err := tr.Trace(&blockReq); err != nil {
		t.Fatal(err)
	}

	for pixel := range prev {
		if film.History[1][pixel] != prev[pixel] {
			t.Fatalf("pixel %d: expected the history read plane to remain untouched", pixel)
		}

		exp := prev[pixel].Lerp(film.Accumulator[pixel], blockReq.Blend)
		if film.History[0][pixel] != exp {
			t.Fatalf("pixel %d: expected blended radiance to be %v; got %v", pixel, exp, film.History[0][pixel])
		}
	}
}

func TestTraceEmptyScene(t *testing.T) {
	tr := createTestTracer(t)
	defer tr.Close()

	film := tracer.NewFilm(16, 16)
	sc := scene.NewScene()
	sc.Camera.SetupProjection(1)
	attachTestState(t, tr, film, sc)

	blockReq := testBlockRequest(16, 16)
	if _, err := tr.Trace(&blockReq); err != nil {
		t.Fatal(err)
	}

	// Every ray escapes; the blue-dominant background gradient should
	// reach the frame buffer.
	for ofs := 0; ofs < len(film.FrameBuffer); ofs += 4 {
		if film.FrameBuffer[ofs+2] == 0 {
			t.Fatalf("pixel %d: expected background radiance; got a black pixel", ofs/4)
		}
	}
}

func TestTracerEnqueue(t *testing.T) {
	tr := createTestTracer(t)
	defer tr.Close()

	film := tracer.NewFilm(32, 32)

	// Queue the attachments asynchronously; the worker commits them
	// before tracing the block.
	if err := tr.UpdateState(tracer.Asynchronous, tracer.FilmData, film); err != nil {
		t.Fatal(err)
	}
	if err := tr.UpdateState(tracer.Asynchronous, tracer.SceneData, createTestScene()); err != nil {
		t.Fatal(err)
	}

	doneChan := make(chan uint32, 1)
	errChan := make(chan error, 1)

	blockReq := testBlockRequest(32, 32)
	blockReq.DoneChan = doneChan
	blockReq.ErrChan = errChan

	tr.Enqueue(blockReq)

	select {
	case rows := <-doneChan:
		if rows != blockReq.BlockH {
			t.Fatalf("expected worker to report %d completed rows; got %d", blockReq.BlockH, rows)
		}
	case err := <-errChan:
		t.Fatal(err)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for the worker to process the block request")
	}

	litPixels := 0
	for ofs := 0; ofs < len(film.FrameBuffer); ofs += 4 {
		if film.FrameBuffer[ofs+3] != 0 {
			litPixels++
		}
	}
	if litPixels == 0 {
		t.Fatal("expected queued state changes to be committed before the block was traced")
	}
}

func createTestTracer(t *testing.T) *Tracer {
	devList, err := device.SelectDevices(device.CpuDevice, "CPU")
	if err != nil {
		t.Fatal(err)
	}

	if len(devList) == 0 {
		t.Fatal("could not detect a native CPU device")
	}

	tr, err := NewTracer("test", devList[0], nil)
	if err != nil {
		t.Fatal(err)
	}

	err = tr.Init()
	if err != nil {
		t.Fatal(err)
	}

	return tr
}

func createTestScene() *scene.Scene {
	sc := scene.NewDemoScene(scene.PresetOrbit, 50, 7)
	sc.Camera.SetupProjection(1)
	return sc
}

func attachTestState(t *testing.T, tr *Tracer, film *tracer.Film, sc *scene.Scene) {
	if err := tr.UpdateState(tracer.Synchronous, tracer.FilmData, film); err != nil {
		t.Fatal(err)
	}
	if err := tr.UpdateState(tracer.Synchronous, tracer.SceneData, sc); err != nil {
		t.Fatal(err)
	}
}

func testBlockRequest(frameW, frameH uint32) tracer.BlockRequest {
	return tracer.BlockRequest{
		FrameW:          frameW,
		FrameH:          frameH,
		BlockY:          0,
		BlockH:          frameH,
		SamplesPerPixel: 1,
		NumBounces:      1,
		Exposure:        1.2,
		Blend:           0.5,
		Reset:           true,
		Seed:            99,
	}
}
