package browseruse

import (
	"fmt"
	"strings"
)

// Operation identifies a remote endpoint of the automation service.
type Operation int

const (
	OpUnknown Operation = iota
	// OpRunWithStream runs an automation task with streamed progress.
	OpRunWithStream
	// OpStopAgent stops the running automation agent.
	OpStopAgent
	// OpRunDeepSearch runs a multi-step research task.
	OpRunDeepSearch
	// OpStopResearchAgent stops the running research agent.
	OpStopResearchAgent
	// OpListRecordings lists recorded session videos under a path.
	OpListRecordings
	// OpCloseBrowser closes the service's global browser.
	OpCloseBrowser
	// OpListModels lists the models offered for an LLM provider.
	OpListModels
)

var operationNames = map[Operation]string{
	OpRunWithStream:     "run_with_stream",
	OpStopAgent:         "stop_agent",
	OpRunDeepSearch:     "run_deep_search",
	OpStopResearchAgent: "stop_research_agent",
	OpListRecordings:    "list_recordings",
	OpCloseBrowser:      "close_global_browser",
	OpListModels:        "lambda",
}

// Older WebUI builds register the close handler a second time under a
// suffixed name; both resolve to the same operation.
var operationAliases = map[string]Operation{
	"close_global_browser_1": OpCloseBrowser,
}

// String returns the endpoint name without the leading slash.
func (o Operation) String() string {
	if name, ok := operationNames[o]; ok {
		return name
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// Endpoint returns the fixed endpoint path, e.g. "/run_with_stream".
func (o Operation) Endpoint() string {
	return "/" + o.String()
}

// Valid reports whether o maps to a known endpoint.
func (o Operation) Valid() bool {
	_, ok := operationNames[o]
	return ok
}

// Operations returns all known operations in declaration order.
func Operations() []Operation {
	return []Operation{
		OpRunWithStream,
		OpStopAgent,
		OpRunDeepSearch,
		OpStopResearchAgent,
		OpListRecordings,
		OpCloseBrowser,
		OpListModels,
	}
}

// ParseOperation maps an endpoint name (with or without leading slash)
// back to its Operation.
func ParseOperation(name string) (Operation, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if op, ok := operationAliases[name]; ok {
		return op, nil
	}
	for op, n := range operationNames {
		if n == name {
			return op, nil
		}
	}
	return OpUnknown, fmt.Errorf("unknown operation %q", name)
}
