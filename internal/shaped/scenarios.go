package shaped

import (
	"fmt"
	"sort"

	"github.com/goshape/shaper-core/pkg/config"
)

// builtinScenarios are ready-made scenarios runnable by name, all on a
// 10 Mbps link. basic overloads an 800 KB/s bucket with three equal
// constant flows, priority shares a 600 KB/s bucket across HIGH/MEDIUM/
// LOW flows, and bursty mixes arrival patterns against a deeper bucket.
var builtinScenarios = map[string]func() *config.Scenario{
	"basic": func() *config.Scenario {
		return &config.Scenario{
			Name:                "basic",
			LinkCapacityBits:    10 * 1000000,
			TokenRateBytes:      800 * 1024,
			BucketCapacityBytes: 100 * 1024,
			QueueCapacity:       500,
			Flows: []config.FlowSpec{
				{ID: 1, Pattern: "constant", TargetRateBytes: 400 * 1024, Priority: "medium", Seed: 1},
				{ID: 2, Pattern: "constant", TargetRateBytes: 400 * 1024, Priority: "medium", Seed: 2},
				{ID: 3, Pattern: "constant", TargetRateBytes: 400 * 1024, Priority: "medium", Seed: 3},
			},
		}
	},
	"priority": func() *config.Scenario {
		return &config.Scenario{
			Name:                "priority",
			LinkCapacityBits:    10 * 1000000,
			TokenRateBytes:      600 * 1024,
			BucketCapacityBytes: 80 * 1024,
			QueueCapacity:       400,
			Flows: []config.FlowSpec{
				{ID: 1, Pattern: "constant", TargetRateBytes: 300 * 1024, Priority: "high", Seed: 1},
				{ID: 2, Pattern: "constant", TargetRateBytes: 300 * 1024, Priority: "medium", Seed: 2},
				{ID: 3, Pattern: "constant", TargetRateBytes: 300 * 1024, Priority: "low", Seed: 3},
			},
		}
	},
	"bursty": func() *config.Scenario {
		return &config.Scenario{
			Name:                "bursty",
			LinkCapacityBits:    10 * 1000000,
			TokenRateBytes:      700 * 1024,
			BucketCapacityBytes: 150 * 1024,
			QueueCapacity:       600,
			Flows: []config.FlowSpec{
				{ID: 1, Pattern: "bursty", TargetRateBytes: 400 * 1024, Priority: "medium", Seed: 1},
				{ID: 2, Pattern: "constant", TargetRateBytes: 300 * 1024, Priority: "medium", Seed: 2},
				{ID: 3, Pattern: "poisson", TargetRateBytes: 350 * 1024, Priority: "medium", Seed: 3},
			},
		}
	},
}

// BuiltinScenario returns a validated copy of a named built-in scenario
func BuiltinScenario(name string) (*config.Scenario, error) {
	factory, ok := builtinScenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %q (available: %v)", name, BuiltinScenarioNames())
	}
	s := factory()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("built-in scenario %q: %w", name, err)
	}
	return s, nil
}

// BuiltinScenarioNames returns the built-in scenario names, sorted
func BuiltinScenarioNames() []string {
	names := make([]string, 0, len(builtinScenarios))
	for name := range builtinScenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
