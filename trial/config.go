package trial

import "github.com/louisbranch/tracengine/param"

// RunConfig scopes channel bindings, event bindings, and parameter values by
// plugin instance name, so two configured uses of the same plugin bind
// independently. All accessors are nil-safe.
type RunConfig struct {
	ChannelBindings map[string]map[string]string `json:"channel_bindings"`
	EventBindings   map[string]map[string]string `json:"event_bindings"`
	Parameters      map[string]param.Values      `json:"parameters"`
}

// NewRunConfig creates an empty configuration.
func NewRunConfig() *RunConfig {
	return &RunConfig{
		ChannelBindings: make(map[string]map[string]string),
		EventBindings:   make(map[string]map[string]string),
		Parameters:      make(map[string]param.Values),
	}
}

// BindChannel maps a role to a channel id for one plugin instance.
func (c *RunConfig) BindChannel(instance, role, channelID string) {
	if c.ChannelBindings == nil {
		c.ChannelBindings = make(map[string]map[string]string)
	}
	if c.ChannelBindings[instance] == nil {
		c.ChannelBindings[instance] = make(map[string]string)
	}
	c.ChannelBindings[instance][role] = channelID
}

// BindEvent maps a role to an annotation group name for one plugin instance.
func (c *RunConfig) BindEvent(instance, role, group string) {
	if c.EventBindings == nil {
		c.EventBindings = make(map[string]map[string]string)
	}
	if c.EventBindings[instance] == nil {
		c.EventBindings[instance] = make(map[string]string)
	}
	c.EventBindings[instance][role] = group
}

// SetParameter stores a parameter value for one plugin instance.
func (c *RunConfig) SetParameter(instance, name string, value any) {
	if c.Parameters == nil {
		c.Parameters = make(map[string]param.Values)
	}
	if c.Parameters[instance] == nil {
		c.Parameters[instance] = make(param.Values)
	}
	c.Parameters[instance][name] = value
}

// ChannelBinding looks up the channel id bound to (instance, role).
func (c *RunConfig) ChannelBinding(instance, role string) (string, bool) {
	if c == nil {
		return "", false
	}
	id, ok := c.ChannelBindings[instance][role]
	return id, ok
}

// EventBinding looks up the annotation group bound to (instance, role).
func (c *RunConfig) EventBinding(instance, role string) (string, bool) {
	if c == nil {
		return "", false
	}
	group, ok := c.EventBindings[instance][role]
	return group, ok
}

// InstanceParameters returns the parameter values configured for instance.
// The returned map may be nil; it must not be mutated.
func (c *RunConfig) InstanceParameters(instance string) param.Values {
	if c == nil {
		return nil
	}
	return c.Parameters[instance]
}

// Clone returns a deep copy. Cloning nil yields nil.
func (c *RunConfig) Clone() *RunConfig {
	if c == nil {
		return nil
	}
	out := NewRunConfig()
	for instance, roles := range c.ChannelBindings {
		for role, id := range roles {
			out.BindChannel(instance, role, id)
		}
	}
	for instance, roles := range c.EventBindings {
		for role, group := range roles {
			out.BindEvent(instance, role, group)
		}
	}
	for instance, values := range c.Parameters {
		out.Parameters[instance] = values.Clone()
	}
	return out
}
