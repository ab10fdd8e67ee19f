// Package resolve maps plugin requirement specs to concrete channels and
// event lists using per-instance run configuration. Channel resolution is
// strict: a binding must exist and must name a real column, with no fallback
// search. Event resolution prefers an explicit binding and otherwise scans
// annotation groups in insertion order for the first type match.
package resolve

import (
	"log"
	"sort"

	"github.com/louisbranch/tracengine/platform/errors"
	"github.com/louisbranch/tracengine/trial"
)

// Channel resolves one ChannelSpec for a plugin instance. When cfg is nil the
// run's own configuration is consulted.
func Channel(run *trial.RunData, spec trial.ChannelSpec, cfg *trial.RunConfig, instance string) (trial.Channel, error) {
	if cfg == nil {
		cfg = run.Config
	}
	id, ok := cfg.ChannelBinding(instance, spec.Role)
	if !ok {
		return trial.Channel{}, errors.WithMetadata(errors.CodeChannelNotBound,
			"no channel bound for role",
			map[string]string{"role": spec.Role, "instance": instance})
	}

	ch, err := trial.ParseChannelID(id)
	if err != nil {
		return trial.Channel{}, errors.WrapWithMetadata(errors.CodeChannelNotFound,
			"bound channel id is malformed",
			map[string]string{"role": spec.Role, "instance": instance, "binding": id},
			err)
	}

	g, ok := run.Signal(ch.Group)
	if !ok || !g.HasChannel(ch.Name) {
		return trial.Channel{}, errors.WithMetadata(errors.CodeChannelNotFound,
			"bound channel does not exist in run",
			map[string]string{"role": spec.Role, "instance": instance, "channel": id})
	}
	return ch, nil
}

// All resolves every role of a plugin, failing fast on the first unresolved
// role. Roles are processed in sorted order so the failing role is
// deterministic. No partial result is returned.
func All(run *trial.RunData, specs map[string]trial.ChannelSpec, cfg *trial.RunConfig, instance string) (map[string]trial.Channel, error) {
	roles := make([]string, 0, len(specs))
	for role := range specs {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	resolved := make(map[string]trial.Channel, len(specs))
	for _, role := range roles {
		ch, err := Channel(run, specs[role], cfg, instance)
		if err != nil {
			return nil, err
		}
		resolved[role] = ch
	}
	return resolved, nil
}

// Events resolves every EventSpec of a plugin. Per role, an instance-scoped
// binding to an existing annotation group wins; a binding naming a missing
// group is logged and ignored. Otherwise the annotation groups are scanned in
// insertion order and the first non-empty group whose leading event matches
// the spec's type is used.
func Events(run *trial.RunData, specs map[string]trial.EventSpec, cfg *trial.RunConfig, instance string) (map[string][]trial.Event, error) {
	if cfg == nil {
		cfg = run.Config
	}

	roles := make([]string, 0, len(specs))
	for role := range specs {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	resolved := make(map[string][]trial.Event, len(specs))
	for _, role := range roles {
		spec := specs[role]

		if group, ok := cfg.EventBinding(instance, role); ok {
			if events, exists := run.Annotations(group); exists {
				resolved[role] = events
				continue
			}
			log.Printf("resolve: bound event group %q for role %q does not exist, scanning instead", group, role)
		}

		found := false
		for _, group := range run.AnnotationGroups() {
			events, _ := run.Annotations(group)
			if len(events) > 0 && events[0].Type == spec.EventType {
				resolved[role] = events
				found = true
				break
			}
		}
		if !found {
			return nil, errors.WithMetadata(errors.CodeEventsNotFound,
				"no annotation group matches the event spec",
				map[string]string{
					"role":       role,
					"kind":       spec.Kind,
					"event_type": string(spec.EventType),
					"instance":   instance,
				})
		}
	}
	return resolved, nil
}
