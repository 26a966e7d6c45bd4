// Package remote carries the environment and simulator interfaces over gRPC, so the
// control loop can drive a simulator bridge running in another process.
//
// Every message travels as a google.protobuf.Struct whose fields follow the json
// tags of the Go message types, so any protobuf client can speak the service with the
// well-known Struct type and no generated code.
package remote

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	codecName   = "proto"
	serviceName = "airwrap.v1.Environment"
)

type structCodec struct{}

func (structCodec) Marshal(v any) ([]byte, error) {
	st, err := toStruct(v)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

func (structCodec) Unmarshal(data []byte, v any) error {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	return fromStruct(&st, v)
}

func (structCodec) Name() string {
	return codecName
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", v, err)
	}
	var st structpb.Struct
	if err := protojson.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("%T does not map onto a Struct: %w", v, err)
	}
	return &st, nil
}

func fromStruct(st *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(st)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return nil
}
