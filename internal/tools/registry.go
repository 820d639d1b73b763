package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"reactagent/internal/agent"
)

// DefaultTimeout bounds a single step when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// Registry dispatches plan steps to registered providers. It implements agent.ToolProvider.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider

	approver Approver
	timeout  time.Duration
	logger   *zap.Logger
}

var _ agent.ToolProvider = (*Registry)(nil)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithApprover sets the approver consulted for actions that require confirmation.
func WithApprover(a Approver) RegistryOption {
	return func(r *Registry) {
		if a != nil {
			r.approver = a
		}
	}
}

// WithTimeout bounds every step. Non-positive values disable the bound.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.timeout = d }
}

func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry. Without an approver, confirmations are denied.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		approver:  DenyAll,
		timeout:   DefaultTimeout,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("tools")
	return r
}

// Register adds a provider under its name.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, ok := r.providers[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.providers[name] = p
	return nil
}

func (r *Registry) Lookup(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the catalog shown to the planner, sorted by tool name.
func (r *Registry) Describe() []ToolInfo {
	names := r.Names()
	infos := make([]ToolInfo, 0, len(names))
	for _, name := range names {
		p, ok := r.Lookup(name)
		if !ok {
			continue
		}
		infos = append(infos, ToolInfo{
			Name:        name,
			Description: p.Description(),
			Actions:     p.Actions(),
		})
	}
	return infos
}

// Execute runs one step. Every ordinary problem is reported in the outcome.
func (r *Registry) Execute(ctx context.Context, step agent.Step) agent.Outcome {
	logger := r.logger.With(zap.String("tool", step.Tool), zap.String("action", step.Action))

	p, ok := r.Lookup(step.Tool)
	if !ok {
		logger.Warn("Step refers to an unknown tool")
		return agent.Failed(agent.FailureReasonUnknownTool, fmt.Sprintf("tool %q is not registered", step.Tool))
	}
	action, ok := findAction(p, step.Action)
	if !ok {
		logger.Warn("Step refers to an unknown action")
		return agent.Failed(agent.FailureReasonUnknownAction,
			fmt.Sprintf("tool %q has no action %q", step.Tool, step.Action))
	}

	if action.RequiresConfirmation {
		approved, err := r.approver.Approve(ctx, step)
		if err != nil {
			logger.Warn("Approval failed", zap.Error(err))
			return agent.Failed(agent.FailureReasonDenied, fmt.Sprintf("approval failed: %v", err))
		}
		if !approved {
			logger.Info("Action denied")
			return agent.Failed(agent.FailureReasonDenied, "the user denied this action")
		}
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	args := step.Arguments
	if args == nil {
		args = map[string]any{}
	}

	start := time.Now()
	output, err := p.Execute(runCtx, step.Action, args)
	if err == nil && runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		err = runCtx.Err()
	}
	if err != nil {
		reason := classify(err)
		logger.Info("Step failed", zap.String("reason", string(reason)), zap.Error(err),
			zap.Duration("elapsed", time.Since(start)))
		return agent.Failed(reason, err.Error())
	}
	logger.Debug("Step succeeded", zap.Duration("elapsed", time.Since(start)))
	return agent.Succeeded(output)
}

func classify(err error) agent.FailureReason {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return agent.FailureReasonTimeout
	case errors.Is(err, ErrInvalidArguments):
		return agent.FailureReasonInvalidArguments
	case errors.Is(err, ErrDenied):
		return agent.FailureReasonDenied
	case errors.Is(err, ErrUnknownAction):
		return agent.FailureReasonUnknownAction
	case errors.Is(err, ErrUnknownTool):
		return agent.FailureReasonUnknownTool
	case errors.Is(err, ErrUnavailable):
		return agent.FailureReasonUnavailable
	default:
		return agent.FailureReasonToolError
	}
}
