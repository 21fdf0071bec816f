package inventory

import (
	"context"

	"github.com/netforge-io/netforge/pkg/util"
)

// Registrar registers newly deployed devices with an external
// resource-tracking system and returns the tracking id assigned to them.
// The real implementation lives outside this repository; the engine only
// depends on the interface.
type Registrar interface {
	Register(ctx context.Context, device Device) (trackingID string, err error)
}

// StubRegistrar is the placeholder wired in until a real tracking backend
// exists. It fails loudly rather than fabricating ids.
type StubRegistrar struct{}

// Register always returns util.ErrNotImplemented.
func (StubRegistrar) Register(ctx context.Context, device Device) (string, error) {
	return "", util.ErrNotImplemented
}
