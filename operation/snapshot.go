// Package operation turns google.longrunning.Operation handles into
// transport-neutral snapshots and recovers typed results and metadata from
// them.
package operation

import (
	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/anypb"
)

// Snapshot is a point-in-time view of a long-running operation.
// Code is only terminal once Done is true; Response is only meaningful
// when Done is true and Code is codes.OK.
type Snapshot interface {
	Name() string
	Done() bool
	Code() codes.Code
	Message() string
	Response() *anypb.Any
	Metadata() *anypb.Any
}

type snapshot struct {
	name     string
	done     bool
	code     codes.Code
	message  string
	response *anypb.Any
	metadata *anypb.Any
}

func (s *snapshot) Name() string         { return s.name }
func (s *snapshot) Done() bool           { return s.done }
func (s *snapshot) Code() codes.Code     { return s.code }
func (s *snapshot) Message() string      { return s.message }
func (s *snapshot) Response() *anypb.Any { return s.response }
func (s *snapshot) Metadata() *anypb.Any { return s.metadata }

// FromProto reads op into a Snapshot. A handle without an error status
// reports codes.OK whether or not it is done. A nil op gives an empty
// snapshot.
func FromProto(op *longrunningpb.Operation) Snapshot {
	s := &snapshot{
		name:     op.GetName(),
		done:     op.GetDone(),
		code:     codes.OK,
		response: op.GetResponse(),
		metadata: op.GetMetadata(),
	}
	if st := op.GetError(); st != nil {
		s.code = codes.Code(st.GetCode())
		s.message = st.GetMessage()
	}
	return s
}
