package operation

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/proto"

	"longrun/rpcerr"
	"longrun/unpack"
)

// ResponseTransformer recovers the typed result of a finished operation.
type ResponseTransformer[T proto.Message] struct {
	desc unpack.Descriptor[T]
}

// NewResponseTransformer binds T, which must be a concrete generated type.
// Use ResponseTransformerFor with a looked-up Descriptor otherwise.
func NewResponseTransformer[T proto.Message]() *ResponseTransformer[T] {
	return ResponseTransformerFor(unpack.For[T]())
}

func ResponseTransformerFor[T proto.Message](d unpack.Descriptor[T]) *ResponseTransformer[T] {
	return &ResponseTransformer[T]{desc: d}
}

// Transform must only be called on a done snapshot. A non-OK code fails
// without looking at the response.
func (t *ResponseTransformer[T]) Transform(s Snapshot) (T, error) {
	var zero T
	code := s.Code()
	if code != codes.OK {
		return zero, rpcerr.New(
			fmt.Sprintf("Operation with name %q failed with status = %s", s.Name(), code),
			nil, code, false,
		).WithKind(rpcerr.KindOperationFailed)
	}
	v, err := t.desc.Unpack(s.Response())
	if err != nil {
		return zero, rpcerr.New(
			fmt.Sprintf("Operation with name %q succeeded, but encountered a problem unpacking it.", s.Name()),
			err, code, false,
		).WithKind(rpcerr.KindResultUnpackFailed)
	}
	return v, nil
}

// MetadataTransformer recovers typed progress metadata from a snapshot in
// any state. Absent metadata yields the zero T.
type MetadataTransformer[T proto.Message] struct {
	desc unpack.Descriptor[T]
}

func NewMetadataTransformer[T proto.Message]() *MetadataTransformer[T] {
	return MetadataTransformerFor(unpack.For[T]())
}

func MetadataTransformerFor[T proto.Message](d unpack.Descriptor[T]) *MetadataTransformer[T] {
	return &MetadataTransformer[T]{desc: d}
}

func (t *MetadataTransformer[T]) Transform(s Snapshot) (T, error) {
	v, err := t.desc.Unpack(s.Metadata())
	if err != nil {
		// The operation may still be running, so report whatever code the
		// snapshot holds now rather than assuming OK.
		code := s.Code()
		var zero T
		return zero, rpcerr.New(
			fmt.Sprintf("Polling operation with name %q succeeded, but encountered a problem unpacking it.", s.Name()),
			err, code, false,
		).WithKind(rpcerr.KindMetadataUnpackFailed)
	}
	return v, nil
}
