package replay

import (
	"fmt"
	"sync"

	"github.com/usestring/harreplay/pkg/types"
)

// tracker holds the state of the latest attempt per index. An attempt
// moves Pending -> InFlight -> Succeeded|Failed; a settled attempt is never
// changed, a new replay of the same index starts a new attempt.
type tracker struct {
	mu     sync.Mutex
	states map[int]types.State
}

func newTracker() *tracker {
	return &tracker{states: make(map[int]types.State)}
}

func (t *tracker) get(index int) types.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[index]
}

func (t *tracker) begin(index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.states[index] == types.StateInFlight {
		return &InFlightError{Index: index}
	}
	t.states[index] = types.StateInFlight
	return nil
}

func (t *tracker) settle(index int, st types.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !st.Terminal() {
		panic(fmt.Sprintf("replay: %s is not a terminal state", st))
	}
	// A reset while the attempt was in flight leaves nothing to settle.
	if t.states[index] != types.StateInFlight {
		return
	}
	t.states[index] = st
}

func (t *tracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = make(map[int]types.State)
}
