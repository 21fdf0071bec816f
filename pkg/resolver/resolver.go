// Package resolver ranks candidate connectors for a device.
//
// Ranking is a pure function over the device descriptor and an endpoint
// status snapshot: identical inputs always produce identical ordering, so
// every deployment decision is reproducible in tests from recorded inputs.
package resolver

import (
	"sort"

	"github.com/netforge-io/netforge/pkg/connector"
	"github.com/netforge-io/netforge/pkg/endpoint"
	"github.com/netforge-io/netforge/pkg/inventory"
)

// Rank produces the ordered candidate list for a device:
//
//  1. The healthiest centralized endpoint for the device's platform, when
//     one exists and the device declares the centralized capability.
//  2. The direct-session connector, always, as the final candidate.
//
// Unknown platforms skip step 1 entirely. Unknown health ranks as
// unhealthy. When several endpoints serve the platform, the higher priority
// weight wins, then the most recent successful health check, then the
// endpoint name for a total order.
func Rank(device inventory.Device, view []endpoint.Status) []connector.Candidate {
	var candidates []connector.Candidate

	if kind, ok := connector.CentralizedKind(device.Platform); ok &&
		device.HasCapability(inventory.ChannelCentralized) {
		if best, found := pickEndpoint(device.Platform, view); found {
			cfg := best.Config
			candidates = append(candidates, connector.Candidate{
				Kind:     kind,
				Platform: device.Platform,
				Endpoint: &cfg,
			})
		}
	}

	candidates = append(candidates, connector.Candidate{
		Kind:     connector.KindDirectSession,
		Platform: device.Platform,
	})
	return candidates
}

// pickEndpoint selects the best healthy endpoint for a platform.
func pickEndpoint(platform inventory.Platform, view []endpoint.Status) (endpoint.Status, bool) {
	var eligible []endpoint.Status
	for _, st := range view {
		if st.Config.Platform != platform || !st.Config.Available() {
			continue
		}
		if st.Health != endpoint.Healthy {
			continue
		}
		eligible = append(eligible, st)
	}
	if len(eligible) == 0 {
		return endpoint.Status{}, false
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.Config.Priority != b.Config.Priority {
			return a.Config.Priority > b.Config.Priority
		}
		if !a.LastHealthy.Equal(b.LastHealthy) {
			return a.LastHealthy.After(b.LastHealthy)
		}
		return a.Config.Name < b.Config.Name
	})
	return eligible[0], true
}
