package safety

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/lsep/internal/domain/safety"
	"github.com/oshokin/lsep/internal/engine"
)

// Message field names.
const (
	FieldDistanceM          = "distance_m"
	FieldClosingVelocityMS  = "closing_velocity_ms"
	FieldConfidence         = "confidence"
	FieldTimestamp          = "timestamp"
	FieldState              = "state"
	FieldCandidate          = "candidate"
	FieldCause              = "cause"
	FieldTTC                = "ttc"
	FieldChanged            = "changed"
	FieldHeld               = "held"
	FieldLastTransitionTime = "last_transition_time"
	FieldEntries            = "entries"
	FieldTTCAtTransition    = "ttc_at_transition"
)

var (
	errRequestRequired = errors.New("request is required")
	errUnknownField    = errors.New("unknown field")
	errMissingField    = errors.New("missing field")
	errWrongType       = errors.New("field has the wrong type")
)

// readingFields are the only fields a DetermineState request may carry.
//
//nolint:gochecknoglobals // Read-only lookup table.
var readingFields = []string{FieldDistanceM, FieldClosingVelocityMS, FieldConfidence, FieldTimestamp}

// Result is a DetermineState response: the engine decision plus the
// timestamp the reading was evaluated at.
type Result struct {
	engine.Decision

	Timestamp float64
}

// ReadingFromStruct decodes a DetermineState request. Without a timestamp
// field the reading is stamped with clock. Fields other than the four
// reading fields are rejected.
func ReadingFromStruct(in *structpb.Struct, clock func() time.Time) (domain.SensorReading, error) {
	if in == nil {
		return domain.SensorReading{}, errRequestRequired
	}

	fields := in.GetFields()

	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if !slices.Contains(readingFields, name) {
			return domain.SensorReading{}, fmt.Errorf("%w: %q", errUnknownField, name)
		}
	}

	var values [3]float64

	for i, name := range readingFields[:3] {
		v, err := numberField(fields, name)
		if err != nil {
			return domain.SensorReading{}, err
		}

		values[i] = v
	}

	opts := []domain.ReadingOption{domain.WithClock(clock)}

	if _, ok := fields[FieldTimestamp]; ok {
		ts, err := numberField(fields, FieldTimestamp)
		if err != nil {
			return domain.SensorReading{}, err
		}

		opts = append(opts, domain.WithTimestamp(ts))
	}

	return domain.NewSensorReading(values[0], values[1], values[2], opts...), nil
}

// ReadingToStruct encodes a reading as a DetermineState request.
func ReadingToStruct(r domain.SensorReading) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldDistanceM:         structpb.NewNumberValue(r.DistanceM),
		FieldClosingVelocityMS: structpb.NewNumberValue(r.ClosingVelocityMS),
		FieldConfidence:        structpb.NewNumberValue(r.Confidence),
		FieldTimestamp:         structpb.NewNumberValue(r.Timestamp),
	}}
}

// ResultToStruct encodes a DetermineState response. The ttc field is
// omitted when the confidence gate fired.
func ResultToStruct(r Result) *structpb.Struct {
	fields := map[string]*structpb.Value{
		FieldState:     structpb.NewStringValue(string(r.State)),
		FieldCandidate: structpb.NewStringValue(string(r.Candidate)),
		FieldCause:     structpb.NewStringValue(string(r.Cause)),
		FieldTimestamp: structpb.NewNumberValue(r.Timestamp),
		FieldChanged:   structpb.NewBoolValue(r.Changed),
		FieldHeld:      structpb.NewBoolValue(r.Held),
	}

	if !math.IsNaN(r.TTC) {
		fields[FieldTTC] = structpb.NewNumberValue(r.TTC)
	}

	return &structpb.Struct{Fields: fields}
}

// ResultFromStruct decodes a DetermineState response. A missing ttc decodes as NaN.
func ResultFromStruct(in *structpb.Struct) (Result, error) {
	fields := in.GetFields()

	var (
		r   Result
		err error
	)

	if r.State, err = stateField(fields, FieldState); err != nil {
		return Result{}, err
	}

	if r.Candidate, err = stateField(fields, FieldCandidate); err != nil {
		return Result{}, err
	}

	cause, err := stringField(fields, FieldCause)
	if err != nil {
		return Result{}, err
	}

	r.Cause = domain.Cause(cause)

	if r.Timestamp, err = numberField(fields, FieldTimestamp); err != nil {
		return Result{}, err
	}

	r.TTC = math.NaN()
	if _, ok := fields[FieldTTC]; ok {
		if r.TTC, err = numberField(fields, FieldTTC); err != nil {
			return Result{}, err
		}
	}

	r.Changed = fields[FieldChanged].GetBoolValue()
	r.Held = fields[FieldHeld].GetBoolValue()

	return r, nil
}

// SnapshotToStruct encodes a GetState response.
func SnapshotToStruct(s domain.Snapshot) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldState:              structpb.NewStringValue(string(s.State)),
		FieldLastTransitionTime: structpb.NewNumberValue(s.LastTransitionTime),
	}}
}

// SnapshotFromStruct decodes a GetState response.
func SnapshotFromStruct(in *structpb.Struct) (domain.Snapshot, error) {
	fields := in.GetFields()

	state, err := stateField(fields, FieldState)
	if err != nil {
		return domain.Snapshot{}, err
	}

	last, err := numberField(fields, FieldLastTransitionTime)
	if err != nil {
		return domain.Snapshot{}, err
	}

	return domain.Snapshot{State: state, LastTransitionTime: last}, nil
}

// HistoryToStruct encodes a GetHistory response.
func HistoryToStruct(entries []domain.Transition) *structpb.Struct {
	values := make([]*structpb.Value, 0, len(entries))

	for _, e := range entries {
		values = append(values, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			FieldTimestamp:       structpb.NewNumberValue(e.Timestamp),
			FieldState:           structpb.NewStringValue(string(e.State)),
			FieldTTCAtTransition: structpb.NewNumberValue(e.TTCAtTransition),
			FieldCause:           structpb.NewStringValue(string(e.Cause)),
		}}))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldEntries: structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}
}

// HistoryFromStruct decodes a GetHistory response.
func HistoryFromStruct(in *structpb.Struct) ([]domain.Transition, error) {
	list := in.GetFields()[FieldEntries].GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: %s", errMissingField, FieldEntries)
	}

	out := make([]domain.Transition, 0, len(list.GetValues()))

	for i, v := range list.GetValues() {
		fields := v.GetStructValue().GetFields()

		var (
			tr  domain.Transition
			err error
		)

		if tr.Timestamp, err = numberField(fields, FieldTimestamp); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		if tr.State, err = stateField(fields, FieldState); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		if tr.TTCAtTransition, err = numberField(fields, FieldTTCAtTransition); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		cause, err := stringField(fields, FieldCause)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		tr.Cause = domain.Cause(cause)
		out = append(out, tr)
	}

	return out, nil
}

func numberField(fields map[string]*structpb.Value, name string) (float64, error) {
	v, ok := fields[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", errMissingField, name)
	}

	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a number", errWrongType, name)
	}

	return n.NumberValue, nil
}

func stringField(fields map[string]*structpb.Value, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", errMissingField, name)
	}

	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", errWrongType, name)
	}

	return s.StringValue, nil
}

func stateField(fields map[string]*structpb.Value, name string) (domain.State, error) {
	tag, err := stringField(fields, name)
	if err != nil {
		return "", err
	}

	return domain.ParseState(tag)
}
