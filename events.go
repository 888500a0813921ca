package obix

// Payload is the structured value attached to a published event.
type Payload struct {
	// Value is the reading's typed value: bool, int64 or float64.
	Value any `json:"value"`

	// Units is the reading's unit, when the gateway reported one.
	Units string `json:"units,omitempty"`
}

// EventSink receives the events accepted by the change/TTL gate.
//
// Publish is only ever called from the connector's polling worker, one call
// at a time. Implementations decide their own delivery guarantees; a returned
// error is logged by the connector and the reading still counts as emitted.
type EventSink interface {
	Publish(varType, varName string, data Payload) error
}

// SinkFunc adapts a function to the [EventSink] interface.
type SinkFunc func(varType, varName string, data Payload) error

// Publish implements [EventSink].
func (f SinkFunc) Publish(varType, varName string, data Payload) error {
	return f(varType, varName, data)
}
