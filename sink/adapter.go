package sink

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is what a sink receives for every inspected operation.
type Record struct {
	Operation    string          `json:"operation"`
	Done         bool            `json:"done"`
	Code         string          `json:"code"`
	Kind         string          `json:"kind,omitempty"` // error kind, empty on success
	Error        string          `json:"error,omitempty"`
	ResultType   string          `json:"result_type,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	MetadataType string          `json:"metadata_type,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	ObservedAt   time.Time       `json:"observed_at"`
}

// EmitFn is what a sink calls once a record has been durably written.
type EmitFn func(*Record)

// Adapter is the common behaviour every sink exposes.
type Adapter interface {
	Configure(any) error // driver-specific config ⇒ struct
	Push(*Record) error  // consume one record
	Close() error        // idempotent
}

// AckAware is *optional*; sinks that confirm delivery implement it and the
// inspector wires the callback if present.
type AckAware interface {
	BindAck(EmitFn)
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
