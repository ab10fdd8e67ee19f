// Package processing defines the processor plugin contract and the builtin
// signal processors: Butterworth low-pass, Savitzky-Golay smoothing, rolling
// mean, and linear detrend, plus the numeric differentiation and
// missing-value fill used by derived-channel creation.
package processing

import (
	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/registry"
)

// Processor transforms one channel's samples into a same-length result.
// Implementations must not mutate the input slice.
type Processor interface {
	// Name is the operation name the processor registers under.
	Name() string
	// Parameters describes the accepted parameters for configuration
	// surfaces.
	Parameters() []param.Spec
	// Process applies the operation. samplingRate is the effective rate in
	// Hz; params carries caller-supplied values, with defaults applied by
	// the processor itself.
	Process(values []float64, samplingRate float64, params param.Values) ([]float64, error)
}

// NewRegistry returns a processor registry preloaded with the builtins.
func NewRegistry() *registry.Registry[Processor] {
	r := registry.New[Processor]()
	for _, p := range []Processor{
		Butterworth{},
		SavitzkyGolay{},
		RollingMean{},
		Detrend{},
	} {
		r.MustRegister(p.Name(), p)
	}
	return r
}
