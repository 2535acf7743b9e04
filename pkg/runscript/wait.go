package runscript

import (
	"context"
	"fmt"
	"time"

	"openrc-go/pkg/rcpath"
	"openrc-go/pkg/svcstate"
)

// pollInterval is how often WaitForState re-checks a dependency's state.
// Spec section 5 lists a flock/poll/read on a dependency's state as one of
// the driver's suspension points; since state membership here is a
// filesystem symlink rather than an fd the driver can select() on, the
// poll-loop itself is the suspension point, grounded on openrc-run.c's
// rc_wait_service busy-poll with a short fixed sleep.
const pollInterval = 20 * time.Millisecond

// WaitForState blocks until svc's primary state is one of want, or ctx is
// done. It is the production Driver.WaitFor hook, which Driver.Start calls
// (through waitOrDefer) to satisfy spec 4.4's "wait for
// need+want+use+after dependencies to leave a pending state" step; a
// Driver whose WaitFor is nil skips that wait.
func WaitForState(layout *rcpath.Layout, ctx context.Context, svc string, want ...svcstate.Primary) error {
	m := svcstate.NewMachine(layout, svc)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		st, err := m.Get()
		if err != nil {
			return err
		}
		for _, p := range want {
			if st.Primary == p {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("runscript: timed out waiting for %s to reach %v: %w", svc, want, ctx.Err())
		case <-ticker.C:
		}
	}
}
