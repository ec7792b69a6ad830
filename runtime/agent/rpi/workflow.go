package rpi

import (
	"context"
	"sync"
	"time"

	"github.com/sdlc-agents/orchestrator/runtime/agent/compactor"
	"github.com/sdlc-agents/orchestrator/runtime/agent/cost"
	"github.com/sdlc-agents/orchestrator/runtime/agent/firewall"
	"github.com/sdlc-agents/orchestrator/runtime/agent/sdlcerrors"
)

const defaultMaxRetries = 5

// SpawnSubagentFunc spawns a sub-agent bound to taskName/objective/tools and
// reports its result back through the Firewall contract (§4.8.4).
type SpawnSubagentFunc func(ctx context.Context, taskName, objective string, tools []string) (SpawnResult, error)

// RunTestsFunc runs the current plan's test command and reports the result
// (§4.8.3/§4.8.4). Required to drive ImplementPhase; DefaultShellRunner
// provides a grounded fallback.
type RunTestsFunc func(ctx context.Context, plan *compactor.Plan) (TestResult, error)

// ApplyFixFunc attempts to repair a failing implementation given the error
// context captured from the last failing test run (§4.8.4).
type ApplyFixFunc func(ctx context.Context, errorContext string, plan *compactor.Plan) error

// EnsureTestExistsFunc is called once per implement attempt; it is
// idempotent (creates the tests a plan requires if missing, a no-op
// otherwise). A nil func is treated as already-satisfied.
type EnsureTestExistsFunc func(ctx context.Context, plan *compactor.Plan) error

// Options configures a Workflow. All collaborator functions are optional;
// their absence degrades functionality (simulated research, a no-op test
// scaffold) rather than failing construction (§4.8.4).
type Options struct {
	Firewall          *firewall.Firewall
	Compactor         *compactor.Compactor
	CostTracker       *cost.Tracker
	MaxRetries        int
	DefaultTestCmd    string
	SpawnSubagentFn   SpawnSubagentFunc
	RunTestsFn        RunTestsFunc
	ApplyFixFn        ApplyFixFunc
	EnsureTestExistFn EnsureTestExistsFunc
	OnStateChange     func(prev, next State)
	OnTestResult      func(TestResult)
	OnFixApplied      func(errorContext string)
}

// Workflow drives a single session through Research, Planning, and
// Implementation (§4.8), the Gate invariant `canImplement() == (currentPlan
// != nil)` enforced before every ImplementPhase call.
type Workflow struct {
	mu sync.Mutex

	state   State
	history []Transition

	currentPlan *compactor.Plan

	firewall    *firewall.Firewall
	compactor   *compactor.Compactor
	costTracker *cost.Tracker

	maxRetries     int
	defaultTestCmd string

	spawnSubagentFn   SpawnSubagentFunc
	runTestsFn        RunTestsFunc
	applyFixFn        ApplyFixFunc
	ensureTestExistFn EnsureTestExistsFunc

	onStateChange func(prev, next State)
	onTestResult  func(TestResult)
	onFixApplied  func(errorContext string)
}

// New constructs a Workflow in the IDLE state.
func New(opts Options) *Workflow {
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	testCmd := opts.DefaultTestCmd
	if testCmd == "" {
		testCmd = compactor.DefaultTestCommand
	}
	return &Workflow{
		state:             StateIdle,
		firewall:          opts.Firewall,
		compactor:         opts.Compactor,
		costTracker:       opts.CostTracker,
		maxRetries:        maxRetries,
		defaultTestCmd:    testCmd,
		spawnSubagentFn:   opts.SpawnSubagentFn,
		runTestsFn:        opts.RunTestsFn,
		applyFixFn:        opts.ApplyFixFn,
		ensureTestExistFn: opts.EnsureTestExistFn,
		onStateChange:     opts.OnStateChange,
		onTestResult:      opts.OnTestResult,
		onFixApplied:      opts.OnFixApplied,
	}
}

// State returns the workflow's current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// History returns the ordered transition log.
func (w *Workflow) History() []Transition {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Transition{}, w.history...)
}

// CanImplement is the Gate invariant: canImplement() == (currentPlan !=
// nil).
func (w *Workflow) CanImplement() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentPlan != nil
}

// CurrentPlan returns the stored plan, if any.
func (w *Workflow) CurrentPlan() *compactor.Plan {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentPlan
}

func (w *Workflow) transition(next State) {
	w.mu.Lock()
	prev := w.state
	w.state = next
	w.history = append(w.history, Transition{From: prev, To: next, Timestamp: nowISO()})
	w.mu.Unlock()

	if w.onStateChange != nil {
		w.onStateChange(prev, next)
	}
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// PlanningPhase implements planningPhase(research, objective?) (§4.8.2): it
// transitions to PLANNING, feeds every research finding into the Compactor
// and runs the "plan" strategy, stores the compacted plan as currentPlan,
// records the plan and the tokens it saved on the cost tracker, and clears
// the compactor for the next research/plan cycle.
func (w *Workflow) PlanningPhase(research ResearchContext, objective string) (*compactor.Plan, error) {
	w.transition(StatePlanning)

	if w.compactor == nil {
		return nil, sdlcerrors.New(sdlcerrors.KindBudget, "rpi: planning phase requires a compactor")
	}
	for _, f := range research.Findings {
		w.compactor.AddFinding(f)
	}

	result := w.compactor.Compact(compactor.StrategyPlan, objective)
	plan := result.Plan
	if plan == nil {
		return nil, sdlcerrors.New(sdlcerrors.KindBudget, "rpi: compactor produced no plan")
	}
	attachDefaultTestCommand(plan, w.defaultTestCmd)

	w.mu.Lock()
	w.currentPlan = plan
	w.mu.Unlock()

	if w.costTracker != nil {
		w.costTracker.SetHasPlan(true)
		w.costTracker.RecordCompaction(result.TokensSaved)
	}
	w.compactor.Reset()

	return plan, nil
}

// attachDefaultTestCommand fills in the default test command on any plan
// step that lacks one, and folds it into the plan's TestCommands set
// (§4.8.2: testCommands = unique(steps.testCommand) U {defaultTestCommand}).
func attachDefaultTestCommand(plan *compactor.Plan, defaultCmd string) {
	seen := make(map[string]bool, len(plan.TestCommands)+1)
	for _, cmd := range plan.TestCommands {
		seen[cmd] = true
	}
	for i := range plan.Steps {
		if plan.Steps[i].TestCommand == "" {
			plan.Steps[i].TestCommand = defaultCmd
		}
		if cmd := plan.Steps[i].TestCommand; !seen[cmd] {
			seen[cmd] = true
			plan.TestCommands = append(plan.TestCommands, cmd)
		}
	}
	if !seen[defaultCmd] {
		plan.TestCommands = append(plan.TestCommands, defaultCmd)
	}
}
