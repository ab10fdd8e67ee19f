// Package luaproc loads signal processors written in Lua. A script defines a
// process function and may declare a display name and parameter specs:
//
//	name = "gain"
//
//	function parameters()
//		return {
//			{ name = "factor", type = "float", default = 2.0 },
//		}
//	end
//
//	function process(values, sampling_rate, params)
//		local out = {}
//		for i, v in ipairs(values) do
//			out[i] = v * params.factor
//		end
//		return out
//	end
//
// process receives the samples as a 1-based array, the effective sampling
// rate in Hz, and the caller parameters as a table. It must return an array
// of the same length.
package luaproc

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/Shopify/go-lua"

	"github.com/louisbranch/tracengine/param"
	"github.com/louisbranch/tracengine/platform/errors"
)

// Processor is a signal processor backed by a Lua script. Each Process call
// runs in a fresh interpreter state, so a Processor is safe for concurrent
// use.
type Processor struct {
	name   string
	source string
	specs  []param.Spec
}

// Load compiles source and extracts the script's declared name and parameter
// specs. name is the fallback when the script declares none.
func Load(name, source string) (*Processor, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	if err := lua.DoString(state, source); err != nil {
		return nil, errors.Wrap(errors.CodeProcessingFailed,
			fmt.Sprintf("lua script %q failed to load", name), err)
	}

	state.Global("process")
	if state.TypeOf(-1) != lua.TypeFunction {
		return nil, errors.WithMetadata(errors.CodeProcessingFailed,
			"lua script does not define a process function",
			map[string]string{"script": name})
	}
	state.Pop(1)

	state.Global("name")
	if state.TypeOf(-1) == lua.TypeString {
		if declared, ok := state.ToString(-1); ok && declared != "" {
			name = declared
		}
	}
	state.Pop(1)

	specs, err := scriptParameters(state)
	if err != nil {
		return nil, errors.Wrap(errors.CodeProcessingFailed,
			fmt.Sprintf("lua script %q has invalid parameters()", name), err)
	}

	return &Processor{name: name, source: source, specs: specs}, nil
}

// LoadFile reads path and loads it as a script. The file name without its
// extension is the fallback processor name.
func LoadFile(path string) (*Processor, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeProcessingFailed, "reading lua script", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Load(name, string(source))
}

func (p *Processor) Name() string { return p.name }

func (p *Processor) Parameters() []param.Spec { return p.specs }

// Process runs the script's process function over values.
func (p *Processor) Process(values []float64, samplingRate float64, params param.Values) ([]float64, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	if err := lua.DoString(state, p.source); err != nil {
		return nil, errors.Wrap(errors.CodeProcessingFailed,
			fmt.Sprintf("lua script %q failed to load", p.name), err)
	}

	state.Global("process")
	if state.TypeOf(-1) != lua.TypeFunction {
		return nil, errors.WithMetadata(errors.CodeProcessingFailed,
			"lua script does not define a process function",
			map[string]string{"script": p.name})
	}

	pushSamples(state, values)
	state.PushNumber(samplingRate)
	pushParams(state, params)

	if err := state.ProtectedCall(3, 1, 0); err != nil {
		return nil, errors.WrapWithMetadata(errors.CodeProcessingFailed,
			"lua process call failed",
			map[string]string{"script": p.name}, err)
	}

	out, err := popSamples(state, len(values))
	if err != nil {
		return nil, errors.WrapWithMetadata(errors.CodeProcessingFailed,
			"lua process returned an invalid result",
			map[string]string{"script": p.name}, err)
	}
	return out, nil
}

func pushSamples(state *lua.State, values []float64) {
	state.NewTable()
	for i, v := range values {
		state.PushNumber(v)
		state.RawSetInt(-2, i+1)
	}
}

func pushParams(state *lua.State, params param.Values) {
	state.NewTable()
	for name, value := range params {
		switch v := value.(type) {
		case float64:
			state.PushNumber(v)
		case float32:
			state.PushNumber(float64(v))
		case int:
			state.PushInteger(v)
		case int64:
			state.PushInteger(int(v))
		case bool:
			state.PushBoolean(v)
		case string:
			state.PushString(v)
		default:
			continue
		}
		state.SetField(-2, name)
	}
}

// popSamples reads the table at the top of the stack as the processed
// samples, enforcing that it is an array of want numbers.
func popSamples(state *lua.State, want int) ([]float64, error) {
	if state.TypeOf(-1) != lua.TypeTable {
		return nil, fmt.Errorf("process must return a table, got %s", state.TypeOf(-1))
	}
	index := state.AbsIndex(-1)

	count := 0
	state.PushNil()
	for state.Next(index) {
		count++
		state.Pop(1)
	}
	if count != want {
		return nil, fmt.Errorf("process returned %d samples, want %d", count, want)
	}

	out := make([]float64, want)
	for i := 1; i <= want; i++ {
		state.RawGetInt(index, i)
		v, ok := state.ToNumber(-1)
		state.Pop(1)
		if !ok {
			return nil, fmt.Errorf("sample %d is not a number", i)
		}
		out[i-1] = v
	}
	return out, nil
}

// scriptParameters calls the optional parameters() function and converts the
// returned array of tables into parameter specs.
func scriptParameters(state *lua.State) ([]param.Spec, error) {
	state.Global("parameters")
	if state.TypeOf(-1) != lua.TypeFunction {
		state.Pop(1)
		return nil, nil
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, err
	}
	defer state.Pop(1)

	if state.TypeOf(-1) != lua.TypeTable {
		return nil, fmt.Errorf("parameters must return a table, got %s", state.TypeOf(-1))
	}
	index := state.AbsIndex(-1)

	length := 0
	state.PushNil()
	for state.Next(index) {
		length++
		state.Pop(1)
	}

	var specs []param.Spec
	for i := 1; i <= length; i++ {
		state.RawGetInt(index, i)
		if state.TypeOf(-1) != lua.TypeTable {
			state.Pop(1)
			return nil, fmt.Errorf("parameter %d is not a table", i)
		}
		spec, err := specFromTable(state, state.AbsIndex(-1))
		state.Pop(1)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func specFromTable(state *lua.State, index int) (param.Spec, error) {
	fields := tableToMap(state, index)

	name, _ := fields["name"].(string)
	if name == "" {
		return param.Spec{}, fmt.Errorf("missing name")
	}

	spec := param.Spec{Name: name, Type: param.TypeFloat}
	if label, ok := fields["label"].(string); ok {
		spec.Label = label
	}
	if kind, ok := fields["type"].(string); ok {
		switch param.Type(kind) {
		case param.TypeFloat, param.TypeInt, param.TypeBool, param.TypeString, param.TypeEnum:
			spec.Type = param.Type(kind)
		default:
			return param.Spec{}, fmt.Errorf("unknown type %q", kind)
		}
	}
	spec.Default = fields["default"]
	if v, ok := toFloat(fields["min"]); ok {
		spec.Min = param.Bound(v)
	}
	if v, ok := toFloat(fields["max"]); ok {
		spec.Max = param.Bound(v)
	}
	if suffix, ok := fields["suffix"].(string); ok {
		spec.Suffix = suffix
	}
	if desc, ok := fields["description"].(string); ok {
		spec.Description = desc
	}
	if options, ok := fields["options"].([]any); ok {
		for _, opt := range options {
			if s, ok := opt.(string); ok {
				spec.Options = append(spec.Options, s)
			}
		}
	}
	return spec, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

func tableToGo(state *lua.State, index int) any {
	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}
	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
