package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/sterwen-tech/shipdataserver/internal/message"
	"github.com/sterwen-tech/shipdataserver/router"
)

// Injector writes every envelope it sees back into a target coupler's
// input, honoring the target's declared Direction. Grounded on
// original_source/src/router_core/publisher.py's Injector
// (`process_msg` calls `self._target.send_msg_gen(msg)`).
type Injector struct {
	name    string
	sources []string
	target  router.Coupler
	timeout time.Duration
}

// NewInjector creates an Injector forwarding envelopes from sources
// into target.
func NewInjector(name string, sources []string, target router.Coupler, timeout time.Duration) (*Injector, error) {
	if target.Direction() == router.DirectionReadOnly {
		return nil, fmt.Errorf("injector %s: target %s is read-only", name, target.Name())
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Injector{name: name, sources: sources, target: target, timeout: timeout}, nil
}

// Name implements router.Publisher.
func (i *Injector) Name() string { return i.name }

// Sources implements router.Publisher.
func (i *Injector) Sources() []string { return i.sources }

// Close implements router.Publisher. The target coupler owns its own
// lifecycle, so Close is a no-op here.
func (i *Injector) Close() error { return nil }

// Publish sends msg out through the target coupler.
func (i *Injector) Publish(msg message.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
	defer cancel()
	return i.target.Send(ctx, msg)
}
