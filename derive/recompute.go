package derive

import (
	"log"
	"sort"

	"github.com/louisbranch/tracengine/trial"
)

// Result reports the outcome of a provenance replay.
type Result struct {
	// Order lists the channel IDs that were rebuilt, in dependency order.
	Order []string
	// Skipped maps channel IDs that could not be rebuilt to the reason.
	Skipped map[string]string
}

// Recompute rebuilds every derived channel recorded in run's provenance,
// parents before children, so loaded data always reflects the recorded
// lineage. Channels that cannot be rebuilt are skipped with a reason and do
// not stop the rest: averaged channels (their mean is already persisted),
// entries whose group or parent is missing, and entries whose processor
// fails.
func (e *Engine) Recompute(run *trial.RunData) Result {
	res := Result{Skipped: make(map[string]string)}
	if len(run.Provenance) == 0 {
		return res
	}

	order, cyclic := topoSort(run.Provenance)
	for _, id := range cyclic {
		res.Skipped[id] = "dependency cycle"
		log.Printf("recompute %s: dependency cycle", id)
	}

	for _, id := range order {
		prov := run.Provenance[id]

		ch, err := trial.ParseChannelID(id)
		if err != nil {
			res.Skipped[id] = "invalid channel id"
			continue
		}
		group, ok := run.Signal(ch.Group)
		if !ok {
			res.Skipped[id] = "signal group not loaded"
			continue
		}
		parentID, ok := prov.PrimaryParent()
		if !ok {
			res.Skipped[id] = "no parents recorded"
			continue
		}
		parent, err := trial.ParseChannelID(parentID)
		if err != nil {
			res.Skipped[id] = "invalid parent id"
			continue
		}
		// Cross-group derivation is not replayed; the persisted column is
		// left as loaded.
		if parent.Group != ch.Group {
			res.Skipped[id] = "cross-group parent"
			continue
		}
		if !group.HasChannel(parent.Name) {
			res.Skipped[id] = "parent channel missing"
			continue
		}

		result, err := e.apply(group, parent.Name, prov.Operation, prov.Parameters)
		if err != nil {
			res.Skipped[id] = err.Error()
			log.Printf("recompute %s: %v", id, err)
			continue
		}
		if err := group.SetColumn(ch.Name, result); err != nil {
			res.Skipped[id] = err.Error()
			log.Printf("recompute %s: %v", id, err)
			continue
		}
		res.Order = append(res.Order, id)
	}
	return res
}

// topoSort orders provenance entries parents-first with Kahn's algorithm.
// Ties resolve lexicographically so replay order is deterministic. Entries
// caught in a dependency cycle are returned separately.
func topoSort(provenance map[string]trial.ChannelProvenance) (order, cyclic []string) {
	ids := make([]string, 0, len(provenance))
	for id := range provenance {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	children := make(map[string][]string, len(ids))
	inDegree := make(map[string]int, len(ids))
	for _, id := range ids {
		inDegree[id] = 0
	}
	for _, id := range ids {
		for _, parent := range provenance[id].Parents {
			if _, ok := inDegree[parent]; ok {
				children[parent] = append(children[parent], id)
				inDegree[id]++
			}
		}
	}

	var queue []string
	for _, id := range ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, child := range children[id] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
		sort.Strings(queue)
	}

	if len(order) < len(ids) {
		seen := make(map[string]bool, len(order))
		for _, id := range order {
			seen[id] = true
		}
		for _, id := range ids {
			if !seen[id] {
				cyclic = append(cyclic, id)
			}
		}
	}
	return order, cyclic
}
