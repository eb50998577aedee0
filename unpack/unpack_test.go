package unpack

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func mustAny(t *testing.T, m proto.Message) *anypb.Any {
	t.Helper()
	a, err := anypb.New(m)
	require.NoError(t, err)
	return a
}

func TestDescriptor_UnpackMatching(t *testing.T) {
	d := For[*wrapperspb.StringValue]()
	require.Equal(t, "google.protobuf.StringValue", string(d.Name()))

	got, err := d.Unpack(mustAny(t, wrapperspb.String("foo")))
	require.NoError(t, err)
	require.Equal(t, "foo", got.GetValue())
}

func TestFor_InterfaceTypePanicsWithGuidance(t *testing.T) {
	require.PanicsWithValue(t,
		"unpack.For: proto.Message is not a concrete message type; use Of or Registry.Lookup",
		func() { For[proto.Message]() })

	d := Of((&wrapperspb.StringValue{}).ProtoReflect().Type())
	got, err := d.Unpack(mustAny(t, wrapperspb.String("x")))
	require.NoError(t, err)
	require.Equal(t, "x", got.(*wrapperspb.StringValue).GetValue())
}

func TestDescriptor_AbsentPayloadIsNotAnError(t *testing.T) {
	got, err := For[*wrapperspb.StringValue]().Unpack(nil)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDescriptor_UnspecifiedYieldsNothing(t *testing.T) {
	var d Descriptor[*wrapperspb.StringValue]
	require.False(t, d.Specified())

	got, err := d.Unpack(mustAny(t, wrapperspb.String("foo")))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDescriptor_TypeMismatch(t *testing.T) {
	payload := mustAny(t, wrapperspb.Int64(7))

	_, err := For[*wrapperspb.StringValue]().Unpack(payload)
	var mm *MismatchError
	require.ErrorAs(t, err, &mm)
	require.Equal(t, "google.protobuf.StringValue", string(mm.Expected))
	require.Equal(t, "type.googleapis.com/google.protobuf.Int64Value", mm.Found)
	require.Nil(t, mm.Err)
	require.Contains(t, err.Error(), "expected google.protobuf.StringValue, found type.googleapis.com/google.protobuf.Int64Value")
}

func TestDescriptor_CorruptBytes(t *testing.T) {
	payload := &anypb.Any{
		TypeUrl: "type.googleapis.com/google.protobuf.StringValue",
		Value:   []byte{0x0a, 0xff}, // field 1, truncated length
	}
	_, err := For[*wrapperspb.StringValue]().Unpack(payload)
	var mm *MismatchError
	require.ErrorAs(t, err, &mm)
	require.Error(t, mm.Err)
	require.True(t, errors.Unwrap(err) != nil)
}

func TestDescriptor_UnpackReturnsFreshValue(t *testing.T) {
	d := For[*wrapperspb.StringValue]()
	payload := mustAny(t, wrapperspb.String("a"))

	first, err := d.Unpack(payload)
	require.NoError(t, err)
	second, err := d.Unpack(payload)
	require.NoError(t, err)
	require.NotSame(t, first, second)
	require.True(t, proto.Equal(first, second))
}

func TestRegistry_LookupGlobal(t *testing.T) {
	r := NewRegistry()

	byName, err := r.Lookup("google.protobuf.Timestamp")
	require.NoError(t, err)
	byURL, err := r.Lookup("type.googleapis.com/google.protobuf.Timestamp")
	require.NoError(t, err)
	require.Equal(t, byName.Name(), byURL.Name())

	ts := timestamppb.Now()
	got, err := byName.Unpack(mustAny(t, ts))
	require.NoError(t, err)
	require.True(t, proto.Equal(ts, got))
}

func TestRegistry_EmptyNameIsUnspecified(t *testing.T) {
	d, err := NewRegistry().Lookup("  ")
	require.NoError(t, err)
	require.False(t, d.Specified())
}

func TestRegistry_UnknownAndInvalid(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("example.v1.DoesNotExist")
	require.ErrorContains(t, err, "unknown message type")

	_, err = r.Lookup("not a name")
	require.ErrorContains(t, err, "invalid message name")
}

func TestRegistry_ExplicitRegistrationWithoutFallback(t *testing.T) {
	r := NewRegistryWith(nil)
	_, err := r.Lookup("google.protobuf.StringValue")
	require.Error(t, err)

	r.Register((&wrapperspb.StringValue{}).ProtoReflect().Type())
	d, err := r.Lookup("google.protobuf.StringValue")
	require.NoError(t, err)
	require.True(t, d.Specified())
}

func TestRegistry_CustomFallback(t *testing.T) {
	types := new(protoregistry.Types)
	require.NoError(t, types.RegisterMessage((&wrapperspb.BoolValue{}).ProtoReflect().Type()))

	r := NewRegistryWith(types)
	_, err := r.Lookup("google.protobuf.BoolValue")
	require.NoError(t, err)
	_, err = r.Lookup("google.protobuf.StringValue")
	require.Error(t, err)
}
