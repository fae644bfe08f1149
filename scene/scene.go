package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/achernar/stardust/types"
	"github.com/olekukonko/tablewriter"
)

const (
	// The maximum number of lights a scene may define. The tracer packs
	// light data into a fixed-size block that its kernels iterate without
	// indirection.
	MaxSceneLights = 8

	// The fixed cube that spatial keys quantize into. Positions outside
	// [VolumeMin, VolumeMin+VolumeSize) clamp into the boundary cells
	// instead of being rejected.
	VolumeMin  float32 = -32.0
	VolumeSize float32 = 64.0
)

// A single simulated particle. Particle slices are per-frame snapshots: the
// tracer treats them as read-only and they are only valid for one frame.
type Particle struct {
	Position types.Vec3
	Radius   float32
	Velocity types.Vec3
}

// Get the min/max corners of the axis-aligned box bounding the particle
// sphere.
func (p Particle) BBox() (types.Vec3, types.Vec3) {
	r := types.Vec3{p.Radius, p.Radius, p.Radius}
	return p.Position.Sub(r), p.Position.Add(r)
}

// A point light with a finite radius controlling its distance falloff.
// Lights are animated by the host between frames and read-only while tracing.
type Light struct {
	Position  types.Vec3
	Color     types.Vec3
	Intensity float32
	Radius    float32
}

// Scene aggregates the per-frame tracer inputs: the particle snapshot, the
// light block and the camera. Scenes with an attached generator refresh their
// particle snapshot procedurally before each frame; scenes loaded from a
// snapshot file keep a static particle set.
type Scene struct {
	Particles []Particle
	Lights    []Light
	Camera    *Camera

	Generator *Generator
}

// Create a new empty scene with a default camera.
func NewScene() *Scene {
	return &Scene{
		Particles: make([]Particle, 0),
		Lights:    make([]Light, 0),
		Camera:    NewCamera(45),
	}
}

// Refresh the particle snapshot and light positions for the given animation
// time. Scenes without a generator are static and not modified.
func (sc *Scene) Animate(time float32) {
	if sc.Generator == nil {
		return
	}
	sc.Particles = sc.Generator.Particles(time, sc.Particles)
	sc.Generator.AnimateLights(sc.Lights, time)
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset", "Count", "Size"})
	table.Append([]string{"Particles", fmt.Sprintf("%d", len(sc.Particles)), fmtSize(sc.Particles)})
	table.Append([]string{"Lights", fmt.Sprintf("%d", len(sc.Lights)), fmtSize(sc.Lights)})
	if sc.Generator != nil {
		table.Append([]string{"Generator", sc.Generator.Preset.String(), fmt.Sprintf("seed %d", sc.Generator.Seed)})
	} else {
		table.Append([]string{"Generator", "static snapshot", " "})
	}
	table.SetFooter([]string{"Total", " ", strings.TrimLeft(fmtSize(sc.Particles, sc.Lights), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
