package unpack

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
)

// Registry resolves descriptors by full message name or type URL. Explicit
// registrations take precedence over the fallback resolver, which defaults
// to protoregistry.GlobalTypes.
type Registry struct {
	fallback protoregistry.MessageTypeResolver

	mu    sync.RWMutex
	types map[protoreflect.FullName]protoreflect.MessageType
}

func NewRegistry() *Registry {
	return &Registry{
		fallback: protoregistry.GlobalTypes,
		types:    map[protoreflect.FullName]protoreflect.MessageType{},
	}
}

// NewRegistryWith uses r instead of the global registry as the fallback.
// A nil r disables the fallback.
func NewRegistryWith(r protoregistry.MessageTypeResolver) *Registry {
	reg := NewRegistry()
	reg.fallback = r
	return reg
}

// Register adds message types, replacing earlier entries with the same name.
func (r *Registry) Register(mts ...protoreflect.MessageType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mt := range mts {
		r.types[mt.Descriptor().FullName()] = mt
	}
}

// Lookup returns the Descriptor for name, which may be a full message name
// or a type URL. An empty name yields the unspecified Descriptor.
func (r *Registry) Lookup(name string) (Descriptor[proto.Message], error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Descriptor[proto.Message]{}, nil
	}
	full := protoreflect.FullName(name)
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		full = protoreflect.FullName(name[i+1:])
	}
	if !full.IsValid() {
		return Descriptor[proto.Message]{}, fmt.Errorf("unpack: invalid message name %q", name)
	}

	r.mu.RLock()
	mt, ok := r.types[full]
	r.mu.RUnlock()
	if ok {
		return Of(mt), nil
	}
	if r.fallback != nil {
		mt, err := r.fallback.FindMessageByName(full)
		if err == nil {
			return Of(mt), nil
		}
		if !errors.Is(err, protoregistry.NotFound) {
			return Descriptor[proto.Message]{}, fmt.Errorf("unpack: resolve %s: %w", full, err)
		}
	}
	return Descriptor[proto.Message]{}, fmt.Errorf("unpack: unknown message type %q", full)
}
