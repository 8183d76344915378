package api

import (
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/vmtest/internal/models"
)

// FromStructRunRequest maps the Run options into a domain RunRequest.
// Recognised fields are iterations, label and refresh; others are ignored.
func FromStructRunRequest(in *structpb.Struct) (models.RunRequest, error) {
	var req models.RunRequest
	if in == nil {
		return req, nil
	}
	fields := in.GetFields()

	if v, ok := fields["iterations"]; ok {
		n, isNum := v.GetKind().(*structpb.Value_NumberValue)
		if !isNum {
			return req, fmt.Errorf("iterations must be a number")
		}
		if n.NumberValue < 0 || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue > math.MaxInt32 {
			return req, fmt.Errorf("iterations must be a non-negative integer, got %v", n.NumberValue)
		}
		req.Iterations = int(n.NumberValue)
	}
	if v, ok := fields["label"]; ok {
		s, isStr := v.GetKind().(*structpb.Value_StringValue)
		if !isStr {
			return req, fmt.Errorf("label must be a string")
		}
		req.Label = s.StringValue
	}
	if v, ok := fields["refresh"]; ok {
		b, isBool := v.GetKind().(*structpb.Value_BoolValue)
		if !isBool {
			return req, fmt.Errorf("refresh must be a boolean")
		}
		req.Refresh = b.BoolValue
	}
	return req, nil
}

// ToStructRunRequest is the client-side inverse of FromStructRunRequest.
func ToStructRunRequest(req models.RunRequest) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"refresh": structpb.NewBoolValue(req.Refresh),
	}
	if req.Iterations > 0 {
		fields["iterations"] = structpb.NewNumberValue(float64(req.Iterations))
	}
	if req.Label != "" {
		fields["label"] = structpb.NewStringValue(req.Label)
	}
	return &structpb.Struct{Fields: fields}
}

// ToStructFingerprint converts a fingerprint into its Struct form, using the
// same field names as the JSON encoding.
func ToStructFingerprint(fp models.Fingerprint) (*structpb.Struct, error) {
	return toStruct(fp)
}

// FromStructFingerprint decodes a Struct produced by ToStructFingerprint.
func FromStructFingerprint(in *structpb.Struct) (models.Fingerprint, error) {
	var fp models.Fingerprint
	err := fromStruct(in, &fp)
	return fp, err
}

// ToStructConsensus converts a consensus report into its Struct form.
func ToStructConsensus(rep models.ConsensusReport) (*structpb.Struct, error) {
	return toStruct(rep)
}

// FromStructConsensus decodes a Struct produced by ToStructConsensus.
func FromStructConsensus(in *structpb.Struct) (models.ConsensusReport, error) {
	var rep models.ConsensusReport
	err := fromStruct(in, &rep)
	return rep, err
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("convert to struct: %w", err)
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, v any) error {
	if in == nil {
		return fmt.Errorf("response is nil")
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("convert from struct: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
