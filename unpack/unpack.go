// Package unpack decodes google.protobuf.Any payloads into concrete
// messages. A Descriptor is bound once to the message type a caller
// expects and is then reused for every payload.
package unpack

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/anypb"
)

// MismatchError reports a payload that does not hold the expected type,
// or whose bytes do not decode as that type.
type MismatchError struct {
	Expected protoreflect.FullName
	Found    string // type URL carried by the payload
	Err      error  // decode error, nil on a plain type mismatch
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("failed to unpack object from 'any' field: expected %s, found %s", e.Expected, e.Found)
}

func (e *MismatchError) Unwrap() error { return e.Err }

// Descriptor identifies a target message type together with a way to
// allocate it. The zero Descriptor is unspecified and unpacks to nothing.
type Descriptor[T proto.Message] struct {
	name  protoreflect.FullName
	alloc func() T
}

// For derives the Descriptor of a generated message type, e.g.
// For[*wrapperspb.StringValue](). T must be a concrete message type; for
// types only known at runtime use Of or Registry.Lookup. For panics when
// T is an interface such as proto.Message.
func For[T proto.Message]() Descriptor[T] {
	var zero T
	if any(zero) == nil {
		panic(fmt.Sprintf("unpack.For: %s is not a concrete message type; use Of or Registry.Lookup", reflect.TypeFor[T]()))
	}
	mt := zero.ProtoReflect().Type()
	return Descriptor[T]{
		name:  mt.Descriptor().FullName(),
		alloc: func() T { return mt.New().Interface().(T) },
	}
}

// Of builds a Descriptor from a message type resolved at runtime.
func Of(mt protoreflect.MessageType) Descriptor[proto.Message] {
	return Descriptor[proto.Message]{
		name:  mt.Descriptor().FullName(),
		alloc: func() proto.Message { return mt.New().Interface() },
	}
}

func (d Descriptor[T]) Name() protoreflect.FullName { return d.name }

// Specified is false for the zero Descriptor.
func (d Descriptor[T]) Specified() bool { return d.alloc != nil }

// Unpack decodes a into a fresh T. A nil payload or an unspecified
// Descriptor yields the zero T and no error.
func (d Descriptor[T]) Unpack(a *anypb.Any) (T, error) {
	var zero T
	if a == nil || !d.Specified() {
		return zero, nil
	}
	if a.MessageName() != d.name {
		return zero, &MismatchError{Expected: d.name, Found: a.GetTypeUrl()}
	}
	m := d.alloc()
	if err := proto.Unmarshal(a.GetValue(), m); err != nil {
		return zero, &MismatchError{Expected: d.name, Found: a.GetTypeUrl(), Err: err}
	}
	return m, nil
}
