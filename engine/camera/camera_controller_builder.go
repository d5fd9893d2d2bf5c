package camera

// CameraControllerOption is a functional option applied to an orbit controller during construction.
type CameraControllerOption func(*orbitController)

// WithRadius sets the orbit radius.
//
// Parameters:
//   - radius: distance from the target
//
// Returns:
//   - CameraControllerOption: a function that sets the orbit radius
func WithRadius(radius float32) CameraControllerOption {
	return func(oc *orbitController) {
		if radius > 0 {
			oc.radius = radius
		}
	}
}

// WithTarget sets the point the controller orbits.
//
// Parameters:
//   - x, y, z: target components
//
// Returns:
//   - CameraControllerOption: a function that sets the orbit target
func WithTarget(x, y, z float32) CameraControllerOption {
	return func(oc *orbitController) {
		oc.target = [3]float32{x, y, z}
	}
}

// WithHeight sets the constant height of the orbit above the target.
func WithHeight(height float32) CameraControllerOption {
	return func(oc *orbitController) {
		oc.height = height
	}
}

// WithOrbitSpeed sets the angular speed in radians per second.
//
// Parameters:
//   - speed: radians per second
//
// Returns:
//   - CameraControllerOption: a function that sets the orbit speed
func WithOrbitSpeed(speed float32) CameraControllerOption {
	return func(oc *orbitController) {
		oc.speed = speed
	}
}
