package resolver

import (
	"math/rand"
	"testing"
	"time"

	"github.com/netforge-io/netforge/pkg/connector"
	"github.com/netforge-io/netforge/pkg/endpoint"
	"github.com/netforge-io/netforge/pkg/inventory"
)

func centralizedDevice(platform inventory.Platform) inventory.Device {
	return inventory.Device{
		ID:           "dev1",
		Platform:     platform,
		MgmtAddr:     "10.0.0.1",
		Capabilities: []inventory.Channel{inventory.ChannelCentralized, inventory.ChannelDirectSession},
	}
}

func healthyEndpoint(name string, platform inventory.Platform, priority int) endpoint.Status {
	return endpoint.Status{
		Config: endpoint.Config{
			Name:          name,
			Platform:      platform,
			BaseURL:       "https://" + name + ".example.com",
			CredentialRef: "TESTREF",
			Enabled:       true,
			Priority:      priority,
		},
		Health: endpoint.Healthy,
	}
}

func TestRank_CentralizedFirst(t *testing.T) {
	device := centralizedDevice(inventory.PlatformJuniperMist)
	view := []endpoint.Status{healthyEndpoint("mist-us", inventory.PlatformJuniperMist, 10)}

	got := Rank(device, view)
	if len(got) != 2 {
		t.Fatalf("Rank() returned %d candidates, want 2", len(got))
	}
	if got[0].Kind != connector.KindMistCloud {
		t.Errorf("first candidate = %q, want %q", got[0].Kind, connector.KindMistCloud)
	}
	if got[0].Endpoint == nil || got[0].Endpoint.Name != "mist-us" {
		t.Errorf("first candidate endpoint = %+v, want mist-us", got[0].Endpoint)
	}
	if got[1].Kind != connector.KindDirectSession {
		t.Errorf("last candidate = %q, want %q", got[1].Kind, connector.KindDirectSession)
	}
}

func TestRank_DirectSessionAlwaysLast(t *testing.T) {
	tests := []struct {
		name   string
		device inventory.Device
		view   []endpoint.Status
	}{
		{"no endpoints", centralizedDevice(inventory.PlatformCiscoIOS), nil},
		{"healthy endpoint", centralizedDevice(inventory.PlatformCiscoIOS),
			[]endpoint.Status{healthyEndpoint("catalyst", inventory.PlatformCiscoIOS, 1)}},
		{"unknown platform", centralizedDevice(inventory.PlatformUnknown), nil},
		{"no capabilities", inventory.Device{ID: "d", Platform: inventory.PlatformCiscoIOS},
			[]endpoint.Status{healthyEndpoint("catalyst", inventory.PlatformCiscoIOS, 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(tt.device, tt.view)
			if len(got) == 0 {
				t.Fatal("Rank() returned no candidates")
			}
			last := got[len(got)-1]
			if last.Kind != connector.KindDirectSession {
				t.Errorf("last candidate = %q, want %q", last.Kind, connector.KindDirectSession)
			}
			if last.Endpoint != nil {
				t.Errorf("direct-session candidate carries an endpoint: %+v", last.Endpoint)
			}
		})
	}
}

func TestRank_UnknownPlatformSkipsCentralized(t *testing.T) {
	device := centralizedDevice(inventory.PlatformUnknown)
	view := []endpoint.Status{healthyEndpoint("mist-us", inventory.PlatformJuniperMist, 10)}

	got := Rank(device, view)
	if len(got) != 1 {
		t.Fatalf("Rank() returned %d candidates, want 1", len(got))
	}
	if got[0].Kind != connector.KindDirectSession {
		t.Errorf("candidate = %q, want %q", got[0].Kind, connector.KindDirectSession)
	}
}

func TestRank_SkipsUnhealthyAndUnknownHealth(t *testing.T) {
	device := centralizedDevice(inventory.PlatformAristaEOS)

	unhealthy := healthyEndpoint("cvp-a", inventory.PlatformAristaEOS, 10)
	unhealthy.Health = endpoint.Unhealthy
	unknown := healthyEndpoint("cvp-b", inventory.PlatformAristaEOS, 5)
	unknown.Health = endpoint.Unknown

	got := Rank(device, []endpoint.Status{unhealthy, unknown})
	if len(got) != 1 || got[0].Kind != connector.KindDirectSession {
		t.Errorf("Rank() with no healthy endpoint = %+v, want direct-session only", got)
	}
}

func TestRank_SkipsDisabledAndBrokenEndpoints(t *testing.T) {
	device := centralizedDevice(inventory.PlatformFortinet)

	disabled := healthyEndpoint("forti-a", inventory.PlatformFortinet, 10)
	disabled.Config.Enabled = false
	broken := healthyEndpoint("forti-b", inventory.PlatformFortinet, 5)
	broken.Config.LoadErr = "missing credential_ref"

	got := Rank(device, []endpoint.Status{disabled, broken})
	if len(got) != 1 || got[0].Kind != connector.KindDirectSession {
		t.Errorf("Rank() with only unavailable endpoints = %+v, want direct-session only", got)
	}
}

func TestRank_TieBreakPriorityThenRecency(t *testing.T) {
	device := centralizedDevice(inventory.PlatformJuniperMist)
	now := time.Now()

	low := healthyEndpoint("mist-low", inventory.PlatformJuniperMist, 1)
	low.LastHealthy = now
	high := healthyEndpoint("mist-high", inventory.PlatformJuniperMist, 10)
	high.LastHealthy = now.Add(-time.Hour)

	got := Rank(device, []endpoint.Status{low, high})
	if got[0].Endpoint.Name != "mist-high" {
		t.Errorf("priority tie-break picked %q, want mist-high", got[0].Endpoint.Name)
	}

	// Equal priority: most recent successful health check wins.
	stale := healthyEndpoint("mist-stale", inventory.PlatformJuniperMist, 5)
	stale.LastHealthy = now.Add(-time.Hour)
	fresh := healthyEndpoint("mist-fresh", inventory.PlatformJuniperMist, 5)
	fresh.LastHealthy = now

	got = Rank(device, []endpoint.Status{stale, fresh})
	if got[0].Endpoint.Name != "mist-fresh" {
		t.Errorf("recency tie-break picked %q, want mist-fresh", got[0].Endpoint.Name)
	}
}

func TestRank_DeterministicOverShuffledInput(t *testing.T) {
	device := centralizedDevice(inventory.PlatformCiscoNXOS)
	now := time.Now()

	view := make([]endpoint.Status, 0, 8)
	for i := 0; i < 8; i++ {
		st := healthyEndpoint(string(rune('a'+i))+"-catalyst", inventory.PlatformCiscoNXOS, i%3)
		st.LastHealthy = now.Add(-time.Duration(i) * time.Minute)
		view = append(view, st)
	}

	want := Rank(device, view)
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]endpoint.Status, len(view))
		copy(shuffled, view)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		got := Rank(device, shuffled)
		if len(got) != len(want) {
			t.Fatalf("trial %d: %d candidates, want %d", trial, len(got), len(want))
		}
		for i := range want {
			if got[i].Kind != want[i].Kind {
				t.Fatalf("trial %d: candidate %d kind = %q, want %q", trial, i, got[i].Kind, want[i].Kind)
			}
			if (got[i].Endpoint == nil) != (want[i].Endpoint == nil) {
				t.Fatalf("trial %d: candidate %d endpoint presence differs", trial, i)
			}
			if got[i].Endpoint != nil && got[i].Endpoint.Name != want[i].Endpoint.Name {
				t.Fatalf("trial %d: candidate %d endpoint = %q, want %q",
					trial, i, got[i].Endpoint.Name, want[i].Endpoint.Name)
			}
		}
	}
}

func TestRank_EveryPlatformMapsToOneCentralizedKind(t *testing.T) {
	platforms := map[inventory.Platform]connector.Kind{
		inventory.PlatformCiscoIOS:    connector.KindCatalystCenter,
		inventory.PlatformCiscoNXOS:   connector.KindCatalystCenter,
		inventory.PlatformJuniperMist: connector.KindMistCloud,
		inventory.PlatformAristaEOS:   connector.KindCloudVision,
		inventory.PlatformFortinet:    connector.KindFortiManager,
		inventory.PlatformPaloAlto:    connector.KindPanorama,
	}

	for platform, wantKind := range platforms {
		device := centralizedDevice(platform)
		view := []endpoint.Status{healthyEndpoint("ep", platform, 1)}
		got := Rank(device, view)
		if got[0].Kind != wantKind {
			t.Errorf("platform %q: first candidate = %q, want %q", platform, got[0].Kind, wantKind)
		}
	}
}
