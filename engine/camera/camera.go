package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// depthZeroToOne remaps OpenGL clip-space depth [-1, 1] to the [0, 1] range the GPU pipeline uses.
var depthZeroToOne = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

type cameraImpl struct {
	mu *sync.Mutex

	up [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix       [16]float32
	projectionMatrix [16]float32

	controller CameraController
	mailbox    *Mailbox
}

// Camera holds perspective settings and computes view/projection matrices from an
// attached CameraController. Every Update publishes the new matrices to the camera's
// Mailbox, where the render thread picks up the latest pair.
type Camera interface {
	// Fov returns the horizontal field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// ViewMatrix returns the current 4x4 view matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the view matrix
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix as 16 floats (column-major),
	// with depth mapped to [0, 1].
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// SetFov sets the horizontal field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height). Non-positive values are ignored.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// Controller returns the attached CameraController.
	Controller() CameraController

	// Mailbox returns the mailbox the camera publishes to.
	Mailbox() *Mailbox

	// Update advances the controller by dt seconds, recomputes the matrices and publishes them.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	//
	// Returns:
	//   - Snapshot: the published snapshot
	Update(dt float32) Snapshot
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera with a 90 degree horizontal field of view, a 16:9 aspect
// ratio, planes at 0.01 and 1000, and an orbit controller unless one is supplied.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:               &sync.Mutex{},
		up:               [3]float32{0, 1, 0},
		fov:              math32.Pi / 2,
		aspect:           16.0 / 9.0,
		near:             0.01,
		far:              1000,
		viewMatrix:       mgl32.Ident4(),
		projectionMatrix: mgl32.Ident4(),
	}
	for _, option := range options {
		option(c)
	}
	if c.controller == nil {
		c.controller = NewOrbitController()
	}
	if c.mailbox == nil {
		c.mailbox = &Mailbox{}
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 || math32.IsInf(aspect, 0) || math32.IsNaN(aspect) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Mailbox() *Mailbox {
	return c.mailbox
}

func (c *cameraImpl) Update(dt float32) Snapshot {
	c.mu.Lock()
	c.controller.Advance(dt)
	c.updateMatrices()
	s := Snapshot{Projection: c.projectionMatrix, View: c.viewMatrix}
	c.mu.Unlock()

	c.mailbox.Publish(s)
	return c.mailbox.Latest()
}

// updateMatrices recalculates the view and projection matrices from the controller.
// The vertical field of view is the horizontal one divided by the aspect ratio.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	px, py, pz := c.controller.Position()
	tx, ty, tz := c.controller.Target()

	eye := mgl32.Vec3{px, py, pz}
	forward := mgl32.Vec3{tx, ty, tz}.Sub(eye).Normalize()
	right := forward.Cross(mgl32.Vec3{c.up[0], c.up[1], c.up[2]})
	up := right.Cross(forward)
	c.viewMatrix = mgl32.LookAtV(eye, eye.Add(forward), up)

	fovY := c.fov / c.aspect
	c.projectionMatrix = depthZeroToOne.Mul4(mgl32.Perspective(fovY, c.aspect, c.near, c.far))
}
