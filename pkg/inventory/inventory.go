// Package inventory defines the device descriptor and the external
// inventory collaborator interface. The deployment engine never invents
// device facts — everything it knows about a device comes from here.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrDeviceNotFound is returned by Lookup when the device id is unknown.
// Deployment for that device is skipped; sibling devices proceed unaffected.
var ErrDeviceNotFound = errors.New("device not found in inventory")

// Platform classifies a device's vendor/OS family. The set is closed:
// adding a vendor means adding a constant here plus one connector variant,
// not scattered string comparisons.
type Platform string

const (
	PlatformCiscoIOS    Platform = "cisco-ios"
	PlatformCiscoNXOS   Platform = "cisco-nxos"
	PlatformJuniperMist Platform = "juniper-mist"
	PlatformAristaEOS   Platform = "arista-eos"
	PlatformFortinet    Platform = "fortinet"
	PlatformPaloAlto    Platform = "paloalto"
	PlatformUnknown     Platform = "unknown"
)

// Valid reports whether p is one of the known platform constants.
func (p Platform) Valid() bool {
	switch p {
	case PlatformCiscoIOS, PlatformCiscoNXOS, PlatformJuniperMist,
		PlatformAristaEOS, PlatformFortinet, PlatformPaloAlto, PlatformUnknown:
		return true
	}
	return false
}

// Channel is a reachability channel a device declares support for.
type Channel string

const (
	ChannelCentralized   Channel = "centralized"
	ChannelDirectSession Channel = "direct-session"
)

// Device describes one managed device. Values are immutable per deployment
// attempt; callers re-look-up between batches to pick up inventory changes.
type Device struct {
	ID           string    `yaml:"id" json:"id"`
	Platform     Platform  `yaml:"platform" json:"platform"`
	MgmtAddr     string    `yaml:"mgmt_addr" json:"mgmt_addr"`
	Capabilities []Channel `yaml:"capabilities" json:"capabilities"`
	InventoryRef string    `yaml:"inventory_ref,omitempty" json:"inventory_ref,omitempty"`
}

// HasCapability reports whether the device declares the given channel.
func (d Device) HasCapability(c Channel) bool {
	for _, cap := range d.Capabilities {
		if cap == c {
			return true
		}
	}
	return false
}

// Store is the inventory collaborator contract.
type Store interface {
	// Lookup returns the descriptor for a device id, or ErrDeviceNotFound.
	Lookup(ctx context.Context, id string) (Device, error)
}

// StaticStore is a file-backed Store used by the CLI and by tests.
type StaticStore struct {
	mu      sync.RWMutex
	devices map[string]Device
}

// NewStaticStore creates a store from a list of devices. Devices with an
// unrecognized platform are normalized to PlatformUnknown so the resolver
// routes them straight to the direct-session fallback.
func NewStaticStore(devices []Device) *StaticStore {
	s := &StaticStore{devices: make(map[string]Device, len(devices))}
	for _, d := range devices {
		if !d.Platform.Valid() {
			d.Platform = PlatformUnknown
		}
		s.devices[d.ID] = d
	}
	return s
}

// LoadFile reads an inventory YAML file into a StaticStore.
func LoadFile(path string) (*StaticStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("inventory: read %s: %w", path, err)
	}
	var doc struct {
		Devices []Device `yaml:"devices"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("inventory: parse %s: %w", path, err)
	}
	for _, d := range doc.Devices {
		if d.ID == "" {
			return nil, fmt.Errorf("inventory: %s: device with empty id", path)
		}
	}
	return NewStaticStore(doc.Devices), nil
}

// Lookup implements Store.
func (s *StaticStore) Lookup(ctx context.Context, id string) (Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[id]
	if !ok {
		return Device{}, fmt.Errorf("lookup %q: %w", id, ErrDeviceNotFound)
	}
	return d, nil
}

// List returns all device ids, sorted. Diagnostics only.
func (s *StaticStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.devices))
	for id := range s.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
