package activity

import "github.com/banshee-data/triggeralgs/internal/trigger"

// Predicate names a trigger condition evaluated on a full window.
type Predicate string

const (
	PredicateADC       Predicate = "adc"        // window ADC sum above threshold
	PredicateNChannels Predicate = "n_channels" // distinct channels above threshold
	PredicateAdjacency Predicate = "adjacency"  // longest channel run above threshold
	PredicateTOT       Predicate = "tot"        // incoming primitive time over threshold above cutoff
)

// DefaultPriority is the order predicates are evaluated in when no priority
// is configured.
var DefaultPriority = []Predicate{PredicateADC, PredicateNChannels, PredicateAdjacency, PredicateTOT}

func defaultPriorityNames() []string {
	out := make([]string, len(DefaultPriority))
	for i, p := range DefaultPriority {
		out[i] = string(p)
	}
	return out
}

// parsePriority validates a configured priority list. Every name must be
// known and appear at most once. Predicates left out are never evaluated.
func parsePriority(algo trigger.Algorithm, names []string) ([]Predicate, error) {
	seen := make(map[Predicate]bool, len(names))
	out := make([]Predicate, 0, len(names))
	for _, n := range names {
		p := Predicate(n)
		switch p {
		case PredicateADC, PredicateNChannels, PredicateAdjacency, PredicateTOT:
		default:
			return nil, badConfig(algo, "unknown predicate %q in priority", n)
		}
		if seen[p] {
			return nil, badConfig(algo, "predicate %q listed twice in priority", n)
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}
