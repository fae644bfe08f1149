package scene

import (
	"fmt"

	"github.com/achernar/stardust/types"
	"github.com/go-gl/mathgl/mgl32"
)

// Stores the ray directions at the four corners of the camera frustrum. It is
// used as a shortcut for generating per pixel rays via interpolation of the
// corner rays. While only the XYZ components matter to the tracer we use Vec4
// so the corner block maps onto a vectorized float4 layout.
type Frustrum [4]types.Vec4

func (fr Frustrum) String() string {
	return fmt.Sprintf(
		"Frustrum Rays:\nTL : (%3.3f, %3.3f, %3.3f)\nTR : (%3.3f, %3.3f, %3.3f)\nBL : (%3.3f, %3.3f, %3.3f)\nBR : (%3.3f, %3.3f, %3.3f)",
		fr[0][0], fr[0][1], fr[0][2],
		fr[1][0], fr[1][1], fr[1][2],
		fr[2][0], fr[2][1], fr[2][2],
		fr[3][0], fr[3][1], fr[3][2],
	)
}

// Camera movement directions.
type CameraDirection int

const (
	Forward CameraDirection = iota
	Backward
	Left
	Right
)

// The camera type controls the scene camera.
type Camera struct {
	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3
	Pitch    float32
	Yaw      float32

	ViewMat  mgl32.Mat4
	ProjMat  mgl32.Mat4
	Frustrum Frustrum

	// Camera FOV in degrees.
	FOV float32

	// Adjust the frustrum so that Y is inverted.
	InvertY bool
}

func NewCamera(fov float32) *Camera {
	return &Camera{
		ViewMat:  mgl32.Ident4(),
		ProjMat:  mgl32.Ident4(),
		Position: types.Vec3{0, 0, 0},
		LookAt:   types.Vec3{0, 0, -1},
		Up:       types.Vec3{0, 1, 0},
		FOV:      fov,
	}
}

// Setup camera projection matrix.
func (c *Camera) SetupProjection(aspect float32) {
	c.ProjMat = mgl32.Perspective(mgl32.DegToRad(c.FOV), aspect, 1, 1000)
	c.Update()
}

// Move the camera towards the given direction while maintaining the current
// view direction.
func (c *Camera) Move(dir CameraDirection, speed float32) {
	look := c.LookAt.Sub(c.Position).Normalize()
	right := look.Cross(c.Up).Normalize()

	var offset types.Vec3
	switch dir {
	case Forward:
		offset = look.Mul(speed)
	case Backward:
		offset = look.Mul(-speed)
	case Left:
		offset = right.Mul(-speed)
	case Right:
		offset = right.Mul(speed)
	}

	c.Position = c.Position.Add(offset)
	c.LookAt = c.LookAt.Add(offset)
	c.Update()
}

// Apply pending pitch/yaw, then recalculate the view matrix and the frustrum
// corner rays.
func (c *Camera) Update() {
	dir := c.LookAt.Sub(c.Position).Normalize()
	pitchAxis := dir.Cross(c.Up)
	pitchQuat := types.QuatFromAxisAngle(pitchAxis, c.Pitch)
	yawQuat := types.QuatFromAxisAngle(c.Up, c.Yaw)

	orientQuat := pitchQuat.Mul(yawQuat).Normalize()

	// Update direction; the pending pitch/yaw angles are baked into the
	// look-at point and must not be re-applied by the next update.
	dir = orientQuat.Rotate(dir)
	c.LookAt = c.Position.Add(dir.Mul(1.0))
	c.Pitch, c.Yaw = 0, 0

	c.ViewMat = mgl32.LookAtV(
		mgl32.Vec3(c.Position),
		mgl32.Vec3(c.LookAt),
		mgl32.Vec3(c.Up),
	)
	c.updateFrustrum()
}

func (c *Camera) InvViewProjMat() mgl32.Mat4 {
	return c.ProjMat.Mul4(c.ViewMat).Inv()
}

// Generate a ray vector for each corner of the camera frustrum by
// multiplying clip space vectors for each corner with the inv proj/view
// matrix, applying perspective and subtracting the camera eye position.
func (c *Camera) updateFrustrum() {
	var v mgl32.Vec4
	invProjViewMat := c.InvViewProjMat()
	eye := mgl32.Vec3(c.Position)

	var yUp float32 = 1.0
	if c.InvertY {
		yUp = -1.0
	}

	v = invProjViewMat.Mul4x1(mgl32.Vec4{-1, yUp, -1, 1})
	c.Frustrum[0] = types.Vec3(v.Mul(1.0 / v.W()).Vec3().Sub(eye)).Vec4(0)

	v = invProjViewMat.Mul4x1(mgl32.Vec4{1, yUp, -1, 1})
	c.Frustrum[1] = types.Vec3(v.Mul(1.0 / v.W()).Vec3().Sub(eye)).Vec4(0)

	v = invProjViewMat.Mul4x1(mgl32.Vec4{-1, -yUp, -1, 1})
	c.Frustrum[2] = types.Vec3(v.Mul(1.0 / v.W()).Vec3().Sub(eye)).Vec4(0)

	v = invProjViewMat.Mul4x1(mgl32.Vec4{1, -yUp, -1, 1})
	c.Frustrum[3] = types.Vec3(v.Mul(1.0 / v.W()).Vec3().Sub(eye)).Vec4(0)
}
