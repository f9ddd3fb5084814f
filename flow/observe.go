package flow

import (
	"context"
	"time"

	"github.com/leofalp/aigoflow/internal/jsonx"
	"github.com/leofalp/aigoflow/providers/observability"
)

const (
	attrNodeSkipReason = "flow.node.skip_reason"
	attrNodeOutput     = "flow.node.output"

	previewLength = 200
)

// observer returns the run's observability provider, falling back to the
// one carried by ctx. Nil disables observability.
func (exec *ExecutionContext) observer(ctx context.Context) observability.Provider {
	if exec.config.observer != nil {
		return exec.config.observer
	}
	return observability.ObserverFromContext(ctx)
}

// observeRunStart opens the run span. Returns the context carrying it.
func (exec *ExecutionContext) observeRunStart(ctx context.Context) context.Context {
	provider := exec.observer(ctx)
	if provider == nil {
		return ctx
	}
	exec.config.observer = provider

	ctx, runSpan := provider.StartSpan(ctx, observability.SpanRun,
		observability.String(observability.AttrRunID, exec.runID),
		observability.Int(observability.AttrRunTotalNodes, len(exec.graph.nodes)),
	)
	ctx = observability.ContextWithSpan(ctx, runSpan)
	ctx = observability.ContextWithObserver(ctx, provider)

	provider.Info(ctx, "flow run started",
		observability.String(observability.AttrRunID, exec.runID),
		observability.Int(observability.AttrRunTotalNodes, len(exec.graph.nodes)),
		observability.Strings("flow.run.output_nodes", exec.graph.outputNodes),
	)
	return ctx
}

func (exec *ExecutionContext) observeRunCompleted(ctx context.Context, result *RunResult) {
	provider := exec.config.observer
	if provider == nil {
		return
	}

	provider.Histogram(observability.MetricRunDuration).Record(ctx, result.Duration.Seconds(),
		observability.String(observability.AttrRunStatus, string(result.Status)),
	)

	logAttrs := []observability.Attribute{
		observability.String(observability.AttrRunID, exec.runID),
		observability.String(observability.AttrRunStatus, string(result.Status)),
		observability.Duration(observability.AttrDuration, result.Duration),
	}
	if result.Status == RunSucceeded {
		provider.Info(ctx, "flow run completed", logAttrs...)
	} else {
		provider.Warn(ctx, "flow run completed with failures", append(logAttrs, observability.Error(result.Err()))...)
	}

	if runSpan := observability.SpanFromContext(ctx); runSpan != nil {
		runSpan.SetAttributes(observability.String(observability.AttrRunStatus, string(result.Status)))
		if result.Status == RunFailed {
			runSpan.SetStatus(observability.StatusError, "no output node completed")
		} else {
			runSpan.SetStatus(observability.StatusOK, "run "+string(result.Status))
		}
		runSpan.End()
	}
}

func (exec *ExecutionContext) observeRunFailed(ctx context.Context, runError error, duration time.Duration) {
	provider := exec.config.observer
	if provider == nil {
		return
	}

	provider.Error(ctx, "flow run aborted",
		observability.String(observability.AttrRunID, exec.runID),
		observability.Error(runError),
		observability.Duration(observability.AttrDuration, duration),
	)

	if runSpan := observability.SpanFromContext(ctx); runSpan != nil {
		runSpan.RecordError(runError)
		runSpan.SetStatus(observability.StatusError, "run aborted")
		runSpan.End()
	}
}

// observeNodeStart opens a node span. Returns the context carrying it.
func (exec *ExecutionContext) observeNodeStart(ctx context.Context, node *Node, mode Mode) context.Context {
	provider := exec.observer(ctx)
	if provider == nil {
		return ctx
	}

	dependencies := exec.graph.Dependencies(node.ID)
	ctx, nodeSpan := provider.StartSpan(ctx, observability.SpanNodeExecute,
		observability.String(observability.AttrNodeID, node.ID),
		observability.String(observability.AttrNodeMode, string(mode)),
		observability.Strings(observability.AttrNodeDependencies, dependencies),
	)
	ctx = observability.ContextWithSpan(ctx, nodeSpan)

	provider.Debug(ctx, "node execution started",
		observability.String(observability.AttrNodeID, node.ID),
		observability.String(observability.AttrNodeMode, string(mode)),
	)
	return ctx
}

// observeNodeFinished records the outcome of a structural execution and
// closes its span.
func (exec *ExecutionContext) observeNodeFinished(ctx context.Context, nodeID string, state NodeState, nodeError error, duration time.Duration) {
	provider := exec.observer(ctx)
	if provider == nil {
		return
	}

	provider.Histogram(observability.MetricNodeDuration).Record(ctx, duration.Seconds(),
		observability.String(observability.AttrNodeID, nodeID),
	)
	provider.Counter(observability.MetricNodeCount).Add(ctx, 1,
		observability.String(observability.AttrNodeState, string(state)),
		observability.String(observability.AttrNodeID, nodeID),
	)

	logAttrs := []observability.Attribute{
		observability.String(observability.AttrNodeID, nodeID),
		observability.String(observability.AttrNodeState, string(state)),
		observability.Duration(observability.AttrDuration, duration),
	}

	nodeSpan := observability.SpanFromContext(ctx)
	switch state {
	case StateCompleted:
		if result, stored := exec.Result(nodeID); stored {
			if preview, isString := firstValueOutput(exec.graph.nodes[nodeID], result).(string); isString {
				logAttrs = append(logAttrs, observability.String(attrNodeOutput, observability.TruncateString(preview, previewLength)))
			}
		}
		provider.Info(ctx, "node execution completed", logAttrs...)
		if nodeSpan != nil {
			nodeSpan.SetStatus(observability.StatusOK, "node completed")
		}
	case StateSkipped:
		provider.Warn(ctx, "node execution cancelled", append(logAttrs, observability.Error(nodeError))...)
		if nodeSpan != nil {
			nodeSpan.SetStatus(observability.StatusError, "node cancelled")
		}
	default:
		provider.Error(ctx, "node execution failed", append(logAttrs, observability.Error(nodeError))...)
		if nodeSpan != nil {
			nodeSpan.RecordError(nodeError)
			nodeSpan.SetStatus(observability.StatusError, "node failed")
		}
	}

	if nodeSpan != nil {
		nodeSpan.SetAttributes(
			observability.String(observability.AttrNodeState, string(state)),
			observability.Duration(observability.AttrDuration, duration),
		)
		nodeSpan.End()
	}
}

// observeNodeSkipped records a node that never started, either because an
// upstream node did not complete or because the run was cancelled.
func (exec *ExecutionContext) observeNodeSkipped(ctx context.Context, nodeID, causedBy string, reason error) {
	provider := exec.observer(ctx)
	if provider == nil {
		return
	}

	provider.Counter(observability.MetricNodeCount).Add(ctx, 1,
		observability.String(observability.AttrNodeState, string(StateSkipped)),
		observability.String(observability.AttrNodeID, nodeID),
	)

	logAttrs := []observability.Attribute{observability.String(observability.AttrNodeID, nodeID)}
	if causedBy != "" {
		logAttrs = append(logAttrs, observability.String(observability.AttrNodeCausedBy, causedBy))
	}
	if reason != nil {
		logAttrs = append(logAttrs, observability.String(attrNodeSkipReason, reason.Error()))
	}
	provider.Info(ctx, "node skipped", logAttrs...)
}

func (exec *ExecutionContext) observeToolOnlyNode(ctx context.Context, nodeID string) {
	provider := exec.observer(ctx)
	if provider == nil {
		return
	}
	provider.Debug(ctx, "node bound only as a tool, executor deferred to invocations",
		observability.String(observability.AttrNodeID, nodeID),
	)
}

// observeToolStart opens a tool invocation span. Returns the context
// carrying it.
func (exec *ExecutionContext) observeToolStart(ctx context.Context, invocation ToolInvocation) context.Context {
	provider := exec.observer(ctx)
	if provider == nil {
		return ctx
	}

	arguments, _ := jsonx.MarshalString(invocation.Arguments)
	ctx, toolSpan := provider.StartSpan(ctx, observability.SpanToolInvoke,
		observability.String(observability.AttrToolName, invocation.Tool),
		observability.String(observability.AttrToolInvocationID, invocation.ID),
		observability.String(observability.AttrNodeID, invocation.NodeID),
		observability.Int(observability.AttrToolDepth, invocation.Depth),
		observability.String(observability.AttrToolInput, observability.TruncateString(arguments, previewLength)),
	)
	ctx = observability.ContextWithSpan(ctx, toolSpan)

	provider.Debug(ctx, "tool invocation started",
		observability.String(observability.AttrToolName, invocation.Tool),
		observability.Int(observability.AttrToolDepth, invocation.Depth),
	)
	return ctx
}

func (exec *ExecutionContext) observeToolFinished(ctx context.Context, invocation ToolInvocation) {
	provider := exec.observer(ctx)
	if provider == nil {
		return
	}

	status := "success"
	if invocation.Err != nil {
		status = "error"
	}
	provider.Counter(observability.MetricToolInvocations).Add(ctx, 1,
		observability.String(observability.AttrToolName, invocation.Tool),
		observability.String(observability.AttrStatus, status),
	)

	toolSpan := observability.SpanFromContext(ctx)
	if invocation.Err != nil {
		provider.Error(ctx, "tool invocation failed",
			observability.String(observability.AttrToolName, invocation.Tool),
			observability.Error(invocation.Err),
			observability.Duration(observability.AttrDuration, invocation.Duration),
		)
		if toolSpan != nil {
			toolSpan.RecordError(invocation.Err)
			toolSpan.SetStatus(observability.StatusError, "tool failed")
			toolSpan.End()
		}
		return
	}

	output, _ := jsonx.MarshalString(invocation.Output)
	provider.Debug(ctx, "tool invocation completed",
		observability.String(observability.AttrToolName, invocation.Tool),
		observability.Duration(observability.AttrDuration, invocation.Duration),
	)
	if toolSpan != nil {
		toolSpan.SetAttributes(observability.String(observability.AttrToolOutput, observability.TruncateString(output, previewLength)))
		toolSpan.SetStatus(observability.StatusOK, "tool completed")
		toolSpan.End()
	}
}

// observeProviderResolved logs which candidate serves a capability for a node.
func (exec *ExecutionContext) observeProviderResolved(ctx context.Context, nodeID, capability, candidateID string) {
	provider := exec.observer(ctx)
	if provider == nil {
		return
	}
	provider.Debug(ctx, "provider resolved",
		observability.String(observability.AttrNodeID, nodeID),
		observability.String(observability.AttrCapability, capability),
		observability.String(observability.AttrCandidate, candidateID),
	)
}
