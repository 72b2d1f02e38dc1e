package browseruse

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// Param is a single named request parameter.
type Param struct {
	Name  string
	Value any
}

// Params is an ordered list of named parameters. Order matters for
// transports that send positional payloads.
type Params []Param

// Map returns the parameters as a name → value mapping.
func (p Params) Map() map[string]any {
	m := make(map[string]any, len(p))
	for _, param := range p {
		m[param.Name] = param.Value
	}
	return m
}

// Values returns the parameter values in order.
func (p Params) Values() []any {
	values := make([]any, len(p))
	for i, param := range p {
		values[i] = param.Value
	}
	return values
}

// Get returns the value of the named parameter.
func (p Params) Get(name string) (any, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// Transport issues a single named call against the automation service and
// returns the service's payload verbatim.
type Transport interface {
	Call(ctx context.Context, op Operation, params Params) (json.RawMessage, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, op Operation, params Params) (json.RawMessage, error)

// Call implements Transport.
func (f TransportFunc) Call(ctx context.Context, op Operation, params Params) (json.RawMessage, error) {
	return f(ctx, op, params)
}

// CallRecorder receives one observation per remote call.
// internal/metrics.Collector satisfies it.
type CallRecorder interface {
	RecordRemoteCall(service, operation, status string, duration time.Duration)
}

// normalizePayload keeps the returned payload valid JSON without altering
// JSON bodies: empty bodies become null, non-JSON text becomes a JSON string.
func normalizePayload(data []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	encoded, _ := json.Marshal(string(data))
	return json.RawMessage(encoded)
}
