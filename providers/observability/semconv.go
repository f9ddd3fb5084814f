package observability

// --- Run Attributes ---

const (
	// AttrRunID is the unique identifier of a flow run.
	AttrRunID = "flow.run.id"

	// AttrRunStatus is the final status of a run.
	AttrRunStatus = "flow.run.status"

	// AttrRunTotalNodes is the number of nodes in the executed graph.
	AttrRunTotalNodes = "flow.run.total_nodes"
)

// --- Node Attributes ---

const (
	// AttrNodeID identifies a node within the graph.
	AttrNodeID = "flow.node.id"

	// AttrNodeState is the execution state of a node.
	AttrNodeState = "flow.node.state"

	// AttrNodeCausedBy names the failed node a skip was propagated from.
	AttrNodeCausedBy = "flow.node.caused_by"

	// AttrNodeDependencies lists the upstream node IDs.
	AttrNodeDependencies = "flow.node.dependencies"

	// AttrNodeMode is "flow" for structural executions and "tool" for tool invocations.
	AttrNodeMode = "flow.node.mode"

	// AttrAgentIteration is the 1-based model round trip of an agent node.
	AttrAgentIteration = "flow.agent.iteration"
)

// --- Tool Attributes ---

const (
	// AttrToolName is the name of the invoked tool.
	AttrToolName = "tool.name"

	// AttrToolInvocationID is the unique identifier of one tool invocation.
	AttrToolInvocationID = "tool.invocation.id"

	// AttrToolInput is the serialized tool arguments.
	AttrToolInput = "tool.input"

	// AttrToolOutput is the serialized tool output.
	AttrToolOutput = "tool.output"

	// AttrToolDepth is the call depth of a tool invocation chain.
	AttrToolDepth = "tool.depth"
)

// --- Provider Resolution Attributes ---

const (
	// AttrCapability is the capability being resolved (e.g. "chat", "embedding").
	AttrCapability = "provider.capability"

	// AttrCandidate is the resolved provider candidate.
	AttrCandidate = "provider.candidate"

	// AttrLLMModel is the model identifier used for a request.
	AttrLLMModel = "llm.model"

	// AttrLLMProvider names the backend serving a request (e.g. "anthropic").
	AttrLLMProvider = "llm.provider"

	AttrLLMFinishReason = "llm.finish_reason"
	AttrLLMTokensTotal  = "llm.tokens.total"
)

// --- HTTP Attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPURL              = "http.url"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPRequestBodySize  = "http.request.body_size"
	AttrHTTPResponseBodySize = "http.response.body_size"
)

// --- General Attributes ---

const (
	AttrError             = "error"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	SpanRun            = "flow.run"
	SpanNodeExecute    = "flow.node.execute"
	SpanToolInvoke     = "flow.tool.invoke"
	SpanAgentIteration = "flow.agent.iteration"
)

// --- Event Names ---

const (
	EventHTTPRequestPrepared = "http.request.prepared"
	EventHTTPRequestError    = "http.request.error"
	EventHTTPResponse        = "http.response.received"
	EventHTTPStreamStarted   = "http.stream.started"
)

// --- Metric Names ---

const (
	// MetricNodeCount counts finished nodes by state.
	MetricNodeCount = "aigoflow.node.count"

	// MetricNodeDuration is the histogram of node execution seconds.
	MetricNodeDuration = "aigoflow.node.duration"

	// MetricRunDuration is the histogram of run seconds.
	MetricRunDuration = "aigoflow.run.duration"

	// MetricToolInvocations counts tool invocations by outcome.
	MetricToolInvocations = "aigoflow.tool.invocations"
)
