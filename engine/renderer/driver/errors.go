package driver

import "errors"

var (
	// ErrNoAdapter means no adapter, the software adapter included, could be found.
	ErrNoAdapter = errors.New("driver: no adapter")

	// ErrUnsupportedFeatureLevel means the adapter cannot create a device at the requested level.
	ErrUnsupportedFeatureLevel = errors.New("driver: unsupported feature level")

	// ErrDeviceRemoved means the device was physically removed or hung and must be recreated.
	ErrDeviceRemoved = errors.New("driver: device removed")

	// ErrDeviceReset means the device was reset by the driver and must be recreated.
	ErrDeviceReset = errors.New("driver: device reset")

	// ErrReleased means an object was used after Release.
	ErrReleased = errors.New("driver: object released")
)

// IsDeviceLost reports whether err means the device and every object it created must be rebuilt.
func IsDeviceLost(err error) bool {
	return errors.Is(err, ErrDeviceRemoved) || errors.Is(err, ErrDeviceReset)
}
