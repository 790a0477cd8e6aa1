package vm

import (
	"context"
	"os"
	"os/signal"

	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

// numSignals sizes the process-wide signum->handler array of spec.md §6.5
// ("A process-wide array maps signum -> (user handler name symbol,
// condition value)"), wide enough to cover the standard POSIX signal
// numbers (1-31) plus the reserved 0 slot.
const numSignals = 32

// SignalConfig is one entry of that array: the handler callable and the
// condition value to pass it, installed by Scheme-level code via a
// (install-signal-handler! signum handler condition) style primitive.
type SignalConfig struct {
	Handler   value.Value
	Condition value.Value
}

// InstallSignalHandler registers handler to run (with condition as its
// sole argument) the next time signum is observed pending.
func (t *Thread) InstallSignalHandler(signum int, handler, condition value.Value) {
	if signum < 0 || signum >= numSignals {
		return
	}
	t.handlers[signum] = SignalConfig{Handler: handler, Condition: condition}
}

// RaiseSignal sets signum's pending flag. It is the only Thread method
// safe to call concurrently with the dispatch loop — the OS signal
// watcher goroutine calls it from outside the loop's own goroutine, so the
// flag array is guarded by a mutex rather than left to the loop's
// otherwise-single-threaded state (spec.md §6.5 "The OS-level signal
// handler only sets a per-signum flag").
func (t *Thread) RaiseSignal(signum int) {
	if signum < 0 || signum >= numSignals {
		return
	}
	t.sigMu.Lock()
	t.signals[signum] = true
	t.sigMu.Unlock()
}

// pollSignals is called by the dispatch loop between instructions, never
// mid-instruction (spec.md §6.5, §5 "Suspension points"). A pending signal
// with no installed handler is silently cleared — there is nothing to run.
func (t *Thread) pollSignals() {
	for i := 0; i < numSignals; i++ {
		t.sigMu.Lock()
		pending := t.signals[i]
		if pending {
			t.signals[i] = false
		}
		t.sigMu.Unlock()
		if !pending {
			continue
		}
		cfg := t.handlers[i]
		if cfg.Handler == (value.Value{}) || cfg.Handler.IsNil() {
			continue
		}
		// cfg.Handler is either the zero Value (never installed) or the
		// nil singleton (explicitly uninstalled); either way there is
		// nothing to invoke.
		t.invokeSignalHandler(cfg)
	}
}

// invokeSignalHandler implements spec.md §5/§6.5's out-of-band dispatch: a
// complete all-state snapshot is pushed, then the handler is invoked with
// its return address aimed at the IHR_pc prologue step (RESTORE-ALL-STATE;
// RETURN) instead of the interrupted PC directly, so that once the
// handler itself returns, the loop first undoes the all-state push and
// only then resumes at the exact instruction boundary where the signal
// was observed — the interrupted instruction's own continuation is
// unharmed by any register the handler may have clobbered while running.
func (t *Thread) invokeSignalHandler(cfg SignalConfig) {
	resumePC := t.PC
	// The outer (resumePC, RETURN) frame goes on first, underneath the
	// all-state block: IHR_pc's RESTORE-ALL-STATE must pop the all-state
	// block before its own RETURN reaches this frame, so the all-state
	// push has to sit on top of it, not below.
	t.Push(value.Fixnum(resumePC))
	t.Push(markerReturn)
	t.PreserveAllState()

	argFrame := object.NewFrame(1, -1)
	argFrame.Args[0] = cfg.Condition
	t.Func = cfg.Handler
	t.Val = frameToValue(argFrame)
	t.PC = t.Code.Prologue.IHRPC
	t.invoke(false)
}

// WatchOSSignals bridges real OS signals into the thread's pending-flag
// array via RaiseSignal, running until ctx is cancelled. Grounded on the
// sibling example's errgroup-coordinated goroutine pattern
// (jcorbin-gothird/scripts/gen_vm_expects.go's errgroup.WithContext): the
// VM's entrypoint runs this alongside Run in the same errgroup so a
// cancelled context or a dispatch-loop error tears both down together.
func WatchOSSignals(ctx context.Context, t *Thread, mapping map[os.Signal]int) error {
	sigs := make([]os.Signal, 0, len(mapping))
	for s := range mapping {
		sigs = append(sigs, s)
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	defer signal.Stop(ch)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s := <-ch:
			if idx, ok := mapping[s]; ok {
				t.RaiseSignal(idx)
			}
		}
	}
}
