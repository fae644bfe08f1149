package device

import (
	"fmt"
	"regexp"
	"runtime"
	"sync"
)

type DeviceType uint8

// Supported device types.
const (
	CpuDevice  DeviceType = 1 << iota
	AllDevices            = 0xFF
)

// Assumed per-thread throughput used for the device speed estimate.
const gflopsPerCompUnit = 4

var (
	indentRegex = regexp.MustCompile("(?m)^")
)

func (dt DeviceType) String() string {
	switch dt {
	case CpuDevice:
		return "CPU"
	}
	panic("device: unsupported device type")
}

// The signature of kernels executing over a linear index range. The body is
// invoked once per work item with the item's global index.
type Kernel1D func(gid int)

// The signature of kernels executing over a two-dimensional index range.
type Kernel2D func(x, y int)

// Program maps kernel names to executable kernel bodies. Each entry must be
// a 1D or 2D kernel closure bound over the buffers it operates on.
type Program map[string]interface{}

// A compute device that executes data-parallel kernels on a pool of worker
// goroutines. Exec calls return only after every work item has completed,
// so sequential dispatches observe a full barrier between them.
type Device struct {
	Name string
	Type DeviceType

	compUnits uint32

	// Speed estimate in GFlops.
	Speed uint32

	// The loaded kernel table; set when the device is initialized.
	program Program

	jobChan chan func()
	workers sync.WaitGroup
}

// Implements Stringer.
func (d Device) String() string {
	return fmt.Sprintf(
		"Name: %s\nType: %s\nSpecs: %d computation units, %d GFlops approximate speed",
		d.Name,
		d.Type.String(),
		d.compUnits,
		d.Speed,
	)
}

// Initialize the device: validate the kernel table and start the worker
// pool. Calling Init on an initialized device is a no-op.
func (d *Device) Init(program Program) error {
	// Already initialized
	if d.jobChan != nil {
		return nil
	}

	for name, body := range program {
		switch fn := body.(type) {
		case Kernel1D:
			if fn == nil {
				return fmt.Errorf("native device (%s): kernel %s has a nil body", d.Name, name)
			}
		case func(gid int):
			if fn == nil {
				return fmt.Errorf("native device (%s): kernel %s has a nil body", d.Name, name)
			}
		case Kernel2D:
			if fn == nil {
				return fmt.Errorf("native device (%s): kernel %s has a nil body", d.Name, name)
			}
		case func(x, y int):
			if fn == nil {
				return fmt.Errorf("native device (%s): kernel %s has a nil body", d.Name, name)
			}
		default:
			return fmt.Errorf("native device (%s): kernel %s is neither a 1D nor a 2D kernel", d.Name, name)
		}
	}

	d.program = program
	d.jobChan = make(chan func(), 256)

	numWorkers := int(d.compUnits)
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}
	d.workers.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer d.workers.Done()
			for job := range d.jobChan {
				job()
			}
		}()
	}

	return nil
}

// Shut down the device. In-flight dispatches run to completion before the
// worker pool exits.
func (d *Device) Close() {
	if d.jobChan == nil {
		return
	}
	close(d.jobChan)
	d.workers.Wait()
	d.jobChan = nil
	d.program = nil
}

// Look up a kernel by name in the program the device was initialized with.
func (d *Device) Kernel(name string) (*Kernel, error) {
	if d.program == nil {
		return nil, fmt.Errorf("native device (%s): device not initialized", d.Name)
	}

	body, exists := d.program[name]
	if !exists {
		return nil, fmt.Errorf("native device (%s): unknown kernel %s", d.Name, name)
	}

	kernel := &Kernel{device: d, name: name}
	switch fn := body.(type) {
	case Kernel1D:
		kernel.body1D = fn
	case func(gid int):
		kernel.body1D = fn
	case Kernel2D:
		kernel.body2D = fn
	case func(x, y int):
		kernel.body2D = fn
	}
	return kernel, nil
}

// Create a device backed by the host cpu.
func newCpuDevice() *Device {
	compUnits := uint32(runtime.NumCPU())
	return &Device{
		Name:      fmt.Sprintf("CPU (%d threads)", compUnits),
		Type:      CpuDevice,
		compUnits: compUnits,
		Speed:     compUnits * gflopsPerCompUnit,
	}
}
