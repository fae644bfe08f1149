package device

import (
	"fmt"
	"sync"
	"time"
)

// Job granularity used when the caller does not request an explicit local
// work size.
const (
	autoChunkSize1D = 1024
	autoTileSize2D  = 16
)

// A handle to a named kernel body resolved on a device.
type Kernel struct {
	device *Device
	name   string

	body1D Kernel1D
	body2D Kernel2D
}

// Free any resources used by this kernel. Native kernel handles borrow the
// device's program entry so there is nothing to release; the method exists
// so callers can treat kernel lifetimes uniformly.
func (k *Kernel) Release() {
}

// Execute a 1D kernel over globalWorkSize items starting at offset. The
// work range is split into groups of localWorkSize items, each processed as
// one unit by a pool worker; if localWorkSize is 0 the device picks a
// granularity. The call returns after every work item has completed.
func (k *Kernel) Exec1D(offset, globalWorkSize, localWorkSize int) (time.Duration, error) {
	if k.body1D == nil {
		return 0, fmt.Errorf("native device (%s): kernel %s does not support 1D execution", k.device.Name, k.name)
	}
	if k.device.jobChan == nil {
		return 0, fmt.Errorf("native device (%s): device not initialized", k.device.Name)
	}
	if localWorkSize <= 0 {
		localWorkSize = autoChunkSize1D
	}

	body := k.body1D
	tick := time.Now()

	var wg sync.WaitGroup
	for start := offset; start < offset+globalWorkSize; start += localWorkSize {
		start, end := start, start+localWorkSize
		if end > offset+globalWorkSize {
			end = offset + globalWorkSize
		}

		wg.Add(1)
		k.device.jobChan <- func() {
			defer wg.Done()
			for gid := start; gid < end; gid++ {
				body(gid)
			}
		}
	}
	wg.Wait()

	return time.Since(tick), nil
}

// Execute a 2D kernel over a globalWorkSizeX x globalWorkSizeY range. The
// range is split into localWorkSizeX x localWorkSizeY tiles, one pool job
// per tile; if either local size is 0 the device picks a tile size. The
// call returns after every work item has completed.
func (k *Kernel) Exec2D(offsetX, offsetY, globalWorkSizeX, globalWorkSizeY, localWorkSizeX, localWorkSizeY int) (time.Duration, error) {
	if k.body2D == nil {
		return 0, fmt.Errorf("native device (%s): kernel %s does not support 2D execution", k.device.Name, k.name)
	}
	if k.device.jobChan == nil {
		return 0, fmt.Errorf("native device (%s): device not initialized", k.device.Name)
	}
	if localWorkSizeX <= 0 || localWorkSizeY <= 0 {
		localWorkSizeX, localWorkSizeY = autoTileSize2D, autoTileSize2D
	}

	body := k.body2D
	tick := time.Now()

	var wg sync.WaitGroup
	for tileY := offsetY; tileY < offsetY+globalWorkSizeY; tileY += localWorkSizeY {
		for tileX := offsetX; tileX < offsetX+globalWorkSizeX; tileX += localWorkSizeX {
			startX, endX := tileX, tileX+localWorkSizeX
			startY, endY := tileY, tileY+localWorkSizeY
			if endX > offsetX+globalWorkSizeX {
				endX = offsetX + globalWorkSizeX
			}
			if endY > offsetY+globalWorkSizeY {
				endY = offsetY + globalWorkSizeY
			}

			wg.Add(1)
			k.device.jobChan <- func() {
				defer wg.Done()
				for y := startY; y < endY; y++ {
					for x := startX; x < endX; x++ {
						body(x, y)
					}
				}
			}
		}
	}
	wg.Wait()

	return time.Since(tick), nil
}
