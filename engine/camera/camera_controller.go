package camera

import (
	"sync"

	"github.com/chewxy/math32"
)

// CameraController owns the positional state of a camera. The camera reads
// Position and Target from its controller each time it recomputes its matrices.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - x, y, z: position components
	Position() (x, y, z float32)

	// Target returns the look-at point.
	//
	// Returns:
	//   - x, y, z: target components
	Target() (x, y, z float32)

	// SetTarget sets the point the camera orbits and looks at.
	//
	// Parameters:
	//   - x, y, z: target components
	SetTarget(x, y, z float32)

	// Radius returns the orbit radius.
	//
	// Returns:
	//   - float32: distance from the target
	Radius() float32

	// SetRadius sets the orbit radius. Non-positive values are ignored.
	//
	// Parameters:
	//   - radius: distance from the target
	SetRadius(radius float32)

	// Elapsed returns the accumulated orbit time in seconds.
	Elapsed() float32

	// Advance moves the camera along its orbit by dt seconds.
	//
	// Parameters:
	//   - dt: elapsed time in seconds
	Advance(dt float32)
}

// orbitController circles the target in the horizontal plane. After t seconds the
// position is target + (sin(t·speed)·radius, height, cos(t·speed)·radius).
type orbitController struct {
	mu *sync.Mutex

	target  [3]float32
	radius  float32
	height  float32
	speed   float32
	elapsed float32
}

var _ CameraController = &orbitController{}

// NewOrbitController creates an orbit controller at radius 5 around the origin, one radian per second.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewOrbitController(options ...CameraControllerOption) CameraController {
	oc := &orbitController{
		mu:     &sync.Mutex{},
		radius: 5,
		speed:  1,
	}
	for _, option := range options {
		option(oc)
	}
	return oc
}

func (oc *orbitController) Position() (x, y, z float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	angle := oc.elapsed * oc.speed
	return oc.target[0] + math32.Sin(angle)*oc.radius,
		oc.target[1] + oc.height,
		oc.target[2] + math32.Cos(angle)*oc.radius
}

func (oc *orbitController) Target() (x, y, z float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.target[0], oc.target[1], oc.target[2]
}

func (oc *orbitController) SetTarget(x, y, z float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.target = [3]float32{x, y, z}
}

func (oc *orbitController) Radius() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.radius
}

func (oc *orbitController) SetRadius(radius float32) {
	if radius <= 0 {
		return
	}
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.radius = radius
}

func (oc *orbitController) Elapsed() float32 {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	return oc.elapsed
}

func (oc *orbitController) Advance(dt float32) {
	oc.mu.Lock()
	defer oc.mu.Unlock()
	oc.elapsed += dt
}
