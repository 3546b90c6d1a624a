package broker

import (
	"fmt"
	"log"
	"sort"
)

// Broker is the fact-exchange and suggestion surface for one project.
type Broker struct {
	docs *Documents
}

// New returns a broker over the project's workflow documents.
func New(projectRoot string) *Broker {
	return &Broker{docs: NewDocuments(projectRoot)}
}

// Documents exposes the underlying document store.
func (b *Broker) Documents() *Documents { return b.docs }

// ShareContext overwrites command's slot in the shared-context
// document with data plus a timestamp and bumped version, and appends
// a run to the workflow history. Overwrite is deliberate: each run's
// published facts supersede the previous run's.
func (b *Broker) ShareContext(command string, data map[string]any) error {
	sc, err := b.docs.LoadSharedContext()
	if err != nil {
		return fmt.Errorf("sharing context for %s: %w", command, err)
	}

	now := timeNow().UTC().Format(timeFormat)
	entry := ContextEntry{Data: data, Timestamp: now, Version: 1}
	if prev, ok := sc.Commands[command]; ok {
		entry.Version = prev.Version + 1
	}
	sc.Commands[command] = entry
	if err := b.docs.SaveSharedContext(sc); err != nil {
		return fmt.Errorf("sharing context for %s: %w", command, err)
	}

	h, err := b.docs.LoadHistory()
	if err != nil {
		return fmt.Errorf("recording run of %s: %w", command, err)
	}
	h.Entries = append(h.Entries, HistoryEntry{Command: command, Timestamp: now})
	h.LastRun[command] = now
	if err := b.docs.SaveHistory(h); err != nil {
		return fmt.Errorf("recording run of %s: %w", command, err)
	}
	return nil
}

// SharedContextFor returns, for the requesting command's declared
// consumes list, the intersecting facts published by other commands,
// keyed by source command. requiredTypes further narrows the fact
// names when non-empty. I/O problems degrade to an empty result.
func (b *Broker) SharedContextFor(requester string, requiredTypes []string) map[string]map[string]any {
	consumes := ContractFor(requester).Consumes
	if len(requiredTypes) > 0 {
		consumes = intersect(consumes, requiredTypes)
	}
	if len(consumes) == 0 {
		return map[string]map[string]any{}
	}

	sc, err := b.docs.LoadSharedContext()
	if err != nil {
		log.Printf("WARNING: shared context unavailable: %v", err)
		return map[string]map[string]any{}
	}

	out := map[string]map[string]any{}
	for source, entry := range sc.Commands {
		if source == requester {
			continue
		}
		facts := intersect(ContractFor(source).Provides, consumes)
		if len(facts) == 0 {
			continue
		}
		slot := map[string]any{}
		for _, name := range facts {
			if v, ok := entry.Data[name]; ok {
				slot[name] = v
			}
		}
		if len(slot) > 0 {
			out[source] = slot
		}
	}
	return out
}

func intersect(a, b []string) []string {
	set := map[string]bool{}
	for _, s := range b {
		set[s] = true
	}
	var out []string
	for _, s := range a {
		if set[s] {
			out = append(out, s)
		}
	}
	return out
}

// mergedFacts flattens every command's published data into one map.
// Sources are applied oldest-first so the most recent publication wins
// on key collisions.
func (sc *SharedContext) mergedFacts() map[string]any {
	sources := make([]string, 0, len(sc.Commands))
	for name := range sc.Commands {
		sources = append(sources, name)
	}
	sort.Slice(sources, func(i, j int) bool {
		a, b := sc.Commands[sources[i]], sc.Commands[sources[j]]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return sources[i] < sources[j]
	})

	out := map[string]any{}
	for _, name := range sources {
		for k, v := range sc.Commands[name].Data {
			out[k] = v
		}
	}
	return out
}
