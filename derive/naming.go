package derive

import (
	"fmt"

	"github.com/louisbranch/tracengine/param"
)

// DerivedName returns the conventional channel name for applying op to base.
// Suffixes compose as operations chain.
//
//	butter          _bf{cutoff}     X_bf10
//	savitzky_golay  _sg             X_sg
//	rolling_mean    _rm{window}     X_rm5
//	derivative      _d{order}       X_d1, X_d2
//	detrend         _dt             X_dt
//	resample        _rs{hz}         X_rs100
//
// Other operations get a generic _{op} suffix.
func DerivedName(base, op string, params param.Values) string {
	switch op {
	case "butter":
		return fmt.Sprintf("%s_bf%d", base, int(params.Float("cutoff", 10)))
	case "savitzky_golay":
		return base + "_sg"
	case "rolling_mean":
		return fmt.Sprintf("%s_rm%d", base, params.Int("window_size", 5))
	case "derivative":
		return fmt.Sprintf("%s_d%d", base, params.Int("order", 1))
	case "detrend":
		return base + "_dt"
	case "resample":
		return fmt.Sprintf("%s_rs%d", base, params.Int("target_hz", 100))
	default:
		return base + "_" + op
	}
}
