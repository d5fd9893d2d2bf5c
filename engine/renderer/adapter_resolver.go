package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/driver"
)

// ResolvedAdapter is the adapter chosen by ResolveAdapter.
type ResolvedAdapter struct {
	Adapter driver.Adapter

	// FeatureLevel is the highest accepted level the adapter supports.
	FeatureLevel driver.FeatureLevel

	// SoftwareFallback is true when no hardware adapter qualified.
	SoftwareFallback bool
}

// ResolveAdapter selects the adapter the device is created on.
//
// Hardware adapters are tried in enumeration order; software adapters in the enumeration
// are skipped. Each adapter is probed at every accepted feature level from lowest to
// highest and the first adapter supporting any level wins at the highest level it
// supports. If no hardware adapter qualifies, the factory's software adapter is probed the
// same way. Adapters that are not chosen are released.
//
// Parameters:
//   - factory: the factory to enumerate
//   - forceSoftware: skip hardware adapters entirely
//
// Returns:
//   - ResolvedAdapter: the chosen adapter, owned by the caller
//   - error: driver.ErrNoAdapter if no adapter supports the minimum level
func ResolveAdapter(factory driver.Factory, forceSoftware bool) (ResolvedAdapter, error) {
	if !forceSoftware {
		var chosen *ResolvedAdapter
		for _, a := range factory.EnumAdapters() {
			if chosen != nil || a.Desc().Software {
				a.Release()
				continue
			}
			level, ok := highestFeatureLevel(a)
			if !ok {
				a.Release()
				continue
			}
			chosen = &ResolvedAdapter{Adapter: a, FeatureLevel: level}
		}
		if chosen != nil {
			return *chosen, nil
		}
	}

	sw, err := factory.SoftwareAdapter()
	if err != nil {
		return ResolvedAdapter{}, fmt.Errorf("software adapter: %w", err)
	}
	level, ok := highestFeatureLevel(sw)
	if !ok {
		sw.Release()
		return ResolvedAdapter{}, driver.ErrNoAdapter
	}
	return ResolvedAdapter{Adapter: sw, FeatureLevel: level, SoftwareFallback: true}, nil
}

// highestFeatureLevel probes a in increasing level order and reports the highest level that succeeded.
func highestFeatureLevel(a driver.Adapter) (driver.FeatureLevel, bool) {
	var (
		best  driver.FeatureLevel
		found bool
	)
	for _, level := range driver.FeatureLevels {
		if a.Probe(level) {
			best, found = level, true
		}
	}
	return best, found
}
