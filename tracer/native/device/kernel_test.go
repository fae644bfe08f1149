package device

import (
	"sync/atomic"
	"testing"
)

func createCpuTestDevice(t *testing.T, program Program) *Device {
	devList, err := SelectDevices(CpuDevice, "CPU")
	if err != nil {
		t.Fatal(err)
	}
	if len(devList) == 0 {
		t.Fatal("expected at least one cpu device")
	}

	dev := devList[0]
	if err = dev.Init(program); err != nil {
		t.Fatal(err)
	}
	return dev
}

func TestKernelExec1DWithAutoLocalWorkSize(t *testing.T) {
	dataSize := 32
	dataIn := make([]int32, dataSize)
	dataOut := make([]int32, dataSize)
	for i := 0; i < dataSize; i++ {
		dataIn[i] = int32(i)
	}

	dev := createCpuTestDevice(t, Program{
		"square": Kernel1D(func(gid int) {
			dataOut[gid] = dataIn[gid] * dataIn[gid]
		}),
	})
	defer dev.Close()

	kernel, err := dev.Kernel("square")
	if err != nil {
		t.Fatal(err)
	}
	defer kernel.Release()

	_, err = kernel.Exec1D(0, dataSize, 0)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < dataSize; i++ {
		expValue := dataIn[i] * dataIn[i]
		if dataOut[i] != expValue {
			t.Fatalf("[item %d] expected squared value of %d to be %d; got %d", i, dataIn[i], expValue, dataOut[i])
		}
	}
}

func TestKernelExec1D(t *testing.T) {
	dataSize := 32
	dataIn := make([]int32, dataSize)
	dataOut := make([]int32, dataSize)
	for i := 0; i < dataSize; i++ {
		dataIn[i] = int32(i)
	}

	dev := createCpuTestDevice(t, Program{
		"square": Kernel1D(func(gid int) {
			dataOut[gid] = dataIn[gid] * dataIn[gid]
		}),
	})
	defer dev.Close()

	kernel, err := dev.Kernel("square")
	if err != nil {
		t.Fatal(err)
	}
	defer kernel.Release()

	_, err = kernel.Exec1D(0, dataSize, 1)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < dataSize; i++ {
		expValue := dataIn[i] * dataIn[i]
		if dataOut[i] != expValue {
			t.Fatalf("[item %d] expected squared value of %d to be %d; got %d", i, dataIn[i], expValue, dataOut[i])
		}
	}
}

func TestKernelExec1DWithOffset(t *testing.T) {
	dataSize := 64
	touched := make([]int32, dataSize)

	dev := createCpuTestDevice(t, Program{
		"touch": Kernel1D(func(gid int) {
			touched[gid]++
		}),
	})
	defer dev.Close()

	kernel, err := dev.Kernel("touch")
	if err != nil {
		t.Fatal(err)
	}

	_, err = kernel.Exec1D(16, 32, 8)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < dataSize; i++ {
		var exp int32 = 0
		if i >= 16 && i < 48 {
			exp = 1
		}
		if touched[i] != exp {
			t.Fatalf("[item %d] expected %d invocations; got %d", i, exp, touched[i])
		}
	}
}

func TestKernelExec2D(t *testing.T) {
	dataWidth := 8
	dataHeight := 8

	dataIn := make([]int32, dataWidth*dataHeight)
	dataOut := make([]int32, dataWidth*dataHeight)
	for i := 0; i < dataWidth*dataHeight; i++ {
		dataIn[i] = int32(i)
	}

	dev := createCpuTestDevice(t, Program{
		"mapBlock": Kernel2D(func(x, y int) {
			dataOut[y*dataWidth+x] = dataIn[y*dataWidth+x]
		}),
	})
	defer dev.Close()

	kernel, err := dev.Kernel("mapBlock")
	if err != nil {
		t.Fatal(err)
	}
	defer kernel.Release()

	_, err = kernel.Exec2D(0, 0, dataWidth, dataHeight, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < dataWidth*dataHeight; i++ {
		if dataOut[i] != dataIn[i] {
			t.Fatalf("[item %d] expected copied value to be %d; got %d", i, dataIn[i], dataOut[i])
		}
	}
}

func TestKernelExec2DTiles(t *testing.T) {
	dataWidth := 20
	dataHeight := 12
	var invocations uint32

	dev := createCpuTestDevice(t, Program{
		"count": Kernel2D(func(x, y int) {
			atomic.AddUint32(&invocations, 1)
		}),
	})
	defer dev.Close()

	kernel, err := dev.Kernel("count")
	if err != nil {
		t.Fatal(err)
	}

	// Tile size does not evenly divide the work area; edge tiles must be
	// clipped rather than running out of range.
	_, err = kernel.Exec2D(0, 0, dataWidth, dataHeight, 8, 8)
	if err != nil {
		t.Fatal(err)
	}

	exp := uint32(dataWidth * dataHeight)
	if invocations != exp {
		t.Fatalf("expected %d invocations; got %d", exp, invocations)
	}
}

func TestKernelExecReturnsAfterBarrier(t *testing.T) {
	dataSize := 100000
	var completed uint32

	dev := createCpuTestDevice(t, Program{
		"count": Kernel1D(func(gid int) {
			atomic.AddUint32(&completed, 1)
		}),
	})
	defer dev.Close()

	kernel, err := dev.Kernel("count")
	if err != nil {
		t.Fatal(err)
	}

	if _, err = kernel.Exec1D(0, dataSize, 256); err != nil {
		t.Fatal(err)
	}

	// Exec must not return before every work item has run.
	if got := atomic.LoadUint32(&completed); got != uint32(dataSize) {
		t.Fatalf("expected %d completed work items after Exec1D returned; got %d", dataSize, got)
	}
}

func TestKernelDimensionMismatch(t *testing.T) {
	dev := createCpuTestDevice(t, Program{
		"linear": Kernel1D(func(gid int) {}),
		"tiled":  Kernel2D(func(x, y int) {}),
	})
	defer dev.Close()

	linear, err := dev.Kernel("linear")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = linear.Exec2D(0, 0, 8, 8, 0, 0); err == nil {
		t.Fatal("expected an error when executing a 1D kernel over a 2D range")
	}

	tiled, err := dev.Kernel("tiled")
	if err != nil {
		t.Fatal(err)
	}
	if _, err = tiled.Exec1D(0, 8, 0); err == nil {
		t.Fatal("expected an error when executing a 2D kernel over a 1D range")
	}
}

func TestDeviceKernelLookupErrors(t *testing.T) {
	dev := newCpuDevice()
	if _, err := dev.Kernel("square"); err == nil {
		t.Fatal("expected an error when resolving a kernel on an uninitialized device")
	}

	if err := dev.Init(Program{"square": Kernel1D(nil)}); err == nil {
		t.Fatal("expected an error when initializing with a nil kernel body")
	}

	if err := dev.Init(Program{"square": Kernel1D(func(gid int) {})}); err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	if _, err := dev.Kernel("cube"); err == nil {
		t.Fatal("expected an error when resolving an unknown kernel")
	}
}
