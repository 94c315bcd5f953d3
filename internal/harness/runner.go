package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/clsnc/TritiumDB/internal/reactor"
)

// TraceEvent is one executed step in a scenario trace.
type TraceEvent struct {
	Op    string `json:"op"`
	Expr  string `json:"expr,omitempty"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
	Sub   string `json:"sub,omitempty"`
	Count int    `json:"count,omitempty"`
}

// TraceSnapshot captures the complete trace of a scenario execution, in a
// form stable enough for golden-file comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// Runner executes scenarios against a fresh reactor per scenario.
type Runner struct {
	reg  *Registry
	opts []reactor.Option
}

// NewRunner creates a runner resolving names through reg. opts apply to the
// reactor built for each execution.
func NewRunner(reg *Registry, opts ...reactor.Option) *Runner {
	return &Runner{reg: reg, opts: opts}
}

// Execute runs every step of the scenario and returns the trace. A failed
// expectation or count assertion aborts with an error identifying the step.
func (run *Runner) Execute(s *Scenario) (*TraceSnapshot, error) {
	r := reactor.New(run.opts...)
	counts := make(map[string]*int)
	snapshot := &TraceSnapshot{ScenarioName: s.Name}

	for i, step := range s.Steps {
		event, err := run.executeStep(r, counts, step)
		if err != nil {
			return nil, fmt.Errorf("scenario %q step %d: %w", s.Name, i+1, err)
		}
		snapshot.Trace = append(snapshot.Trace, event)
	}
	return snapshot, nil
}

func (run *Runner) executeStep(r *reactor.Reactor, counts map[string]*int, step Step) (TraceEvent, error) {
	switch {
	case step.Set != nil:
		e, err := run.reg.Resolve(step.Set)
		if err != nil {
			return TraceEvent{}, err
		}
		if err := r.Set(e, normalizeValue(step.Value)); err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{Op: "set", Expr: e.String(), Value: normalizeValue(step.Value)}, nil

	case step.Get != nil:
		e, err := run.reg.Resolve(step.Get)
		if err != nil {
			return TraceEvent{}, err
		}
		v, gerr := r.Get(e)
		event := TraceEvent{Op: "get", Expr: e.String(), Value: v}
		if gerr != nil {
			event.Error = gerr.Error()
		}
		return event, nil

	case step.Expect != nil:
		e, err := run.reg.Resolve(step.Expect.Expr)
		if err != nil {
			return TraceEvent{}, err
		}
		v, gerr := r.Get(e)
		if step.Expect.Error != "" {
			if gerr == nil || !strings.Contains(gerr.Error(), step.Expect.Error) {
				return TraceEvent{}, fmt.Errorf("expect %s: want error containing %q, got value=%v err=%v", e, step.Expect.Error, v, gerr)
			}
			return TraceEvent{Op: "expect", Expr: e.String(), Error: gerr.Error()}, nil
		}
		if gerr != nil {
			return TraceEvent{}, fmt.Errorf("expect %s: %w", e, gerr)
		}
		if !valuesEqual(step.Expect.Value, v) {
			return TraceEvent{}, fmt.Errorf("expect %s: want %v, got %v", e, step.Expect.Value, v)
		}
		return TraceEvent{Op: "expect", Expr: e.String(), Value: v}, nil

	case step.Subscribe != nil:
		e, err := run.reg.Resolve(step.Subscribe.Expr)
		if err != nil {
			return TraceEvent{}, err
		}
		count := new(int)
		counts[step.Subscribe.As] = count
		if _, err := r.Subscribe(e, func() { *count++ }); err != nil {
			return TraceEvent{}, err
		}
		return TraceEvent{Op: "subscribe", Expr: e.String(), Sub: step.Subscribe.As}, nil

	case step.Flush:
		r.Flush()
		return TraceEvent{Op: "flush"}, nil

	case step.Count != nil:
		count, ok := counts[step.Count.Sub]
		if !ok {
			return TraceEvent{}, fmt.Errorf("count: unknown subscriber %q", step.Count.Sub)
		}
		if *count != step.Count.Value {
			return TraceEvent{}, fmt.Errorf("count %q: want %d, got %d", step.Count.Sub, step.Count.Value, *count)
		}
		return TraceEvent{Op: "count", Sub: step.Count.Sub, Count: *count}, nil

	default:
		return TraceEvent{}, fmt.Errorf("empty step")
	}
}

// normalizeValue widens YAML integers so stored values compare uniformly.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	default:
		return v
	}
}

func valuesEqual(want, got any) bool {
	if wn, ok := asInt64(want); ok {
		gn, ok := asInt64(got)
		return ok && wn == gn
	}
	return reflect.DeepEqual(normalizeValue(want), normalizeValue(got))
}
