package checkpoints

import (
	"fmt"
	"math"
	"sort"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// Binary checkpoint encoding on the protobuf wire format. The schema is
// hand-assigned field numbers rather than generated code, since the message
// set is small and stable:
//
//	Checkpoint:      1 epoch, 2 model_name, 3 best_sensitivity,
//	                 4 patience_counter, 5 accuracy, 6 weights (repeated),
//	                 7 optimizer_state, 8 metadata
//	WeightTensor:    1 name, 2 shape (packed), 3 data (packed fixed32), 4 type
//	OptimizerState:  1 type, 2 parameters (repeated entry), 3 state_data
//	ParameterEntry:  1 key, 2 value
//	OptimizerTensor: 1 name, 2 shape (packed), 3 data (packed fixed32),
//	                 4 state_type
//	Metadata:        1 version, 2 framework, 3 created_at (unix sec),
//	                 4 description

func appendPackedInts(b []byte, num protowire.Number, values []int) []byte {
	var packed []byte
	for _, v := range values {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func appendPackedFloats(b []byte, num protowire.Number, values []float32) []byte {
	packed := make([]byte, 0, 4*len(values))
	for _, v := range values {
		packed = protowire.AppendFixed32(packed, math.Float32bits(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func appendStringField(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendDoubleField(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func marshalWeightTensor(w WeightTensor) []byte {
	var b []byte
	b = appendStringField(b, 1, w.Name)
	b = appendPackedInts(b, 2, w.Shape)
	b = appendPackedFloats(b, 3, w.Data)
	b = appendStringField(b, 4, w.Type)
	return b
}

func marshalOptimizerTensor(t OptimizerTensor) []byte {
	var b []byte
	b = appendStringField(b, 1, t.Name)
	b = appendPackedInts(b, 2, t.Shape)
	b = appendPackedFloats(b, 3, t.Data)
	b = appendStringField(b, 4, t.StateType)
	return b
}

func marshalOptimizerState(s *OptimizerState) []byte {
	var b []byte
	b = appendStringField(b, 1, s.Type)

	// Deterministic output: encode parameters in sorted key order.
	keys := make([]string, 0, len(s.Parameters))
	for k := range s.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var entry []byte
		entry = appendStringField(entry, 1, k)
		entry = appendDoubleField(entry, 2, s.Parameters[k])
		b = appendMessage(b, 2, entry)
	}

	for _, t := range s.StateData {
		b = appendMessage(b, 3, marshalOptimizerTensor(t))
	}
	return b
}

func marshalMetadata(m CheckpointMetadata) []byte {
	var b []byte
	b = appendStringField(b, 1, m.Version)
	b = appendStringField(b, 2, m.Framework)
	b = appendVarintField(b, 3, uint64(m.CreatedAt.Unix()))
	b = appendStringField(b, 4, m.Description)
	return b
}

func marshalCheckpoint(c *Checkpoint) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("nil checkpoint")
	}

	var b []byte
	b = appendVarintField(b, 1, uint64(c.Epoch))
	b = appendStringField(b, 2, c.ModelName)
	b = appendDoubleField(b, 3, c.BestSensitivity)
	b = appendVarintField(b, 4, uint64(c.PatienceCounter))
	b = appendDoubleField(b, 5, c.Accuracy)
	for _, w := range c.Weights {
		b = appendMessage(b, 6, marshalWeightTensor(w))
	}
	if c.OptimizerState != nil {
		b = appendMessage(b, 7, marshalOptimizerState(c.OptimizerState))
	}
	b = appendMessage(b, 8, marshalMetadata(c.Metadata))
	return b, nil
}

// fieldScanner walks the fields of one wire-format message.
type fieldScanner struct {
	buf []byte
	err error
}

func (s *fieldScanner) next() (protowire.Number, protowire.Type, bool) {
	if s.err != nil || len(s.buf) == 0 {
		return 0, 0, false
	}
	num, typ, n := protowire.ConsumeTag(s.buf)
	if n < 0 {
		s.err = protowire.ParseError(n)
		return 0, 0, false
	}
	s.buf = s.buf[n:]
	return num, typ, true
}

func (s *fieldScanner) varint() uint64 {
	v, n := protowire.ConsumeVarint(s.buf)
	if n < 0 {
		s.err = protowire.ParseError(n)
		return 0
	}
	s.buf = s.buf[n:]
	return v
}

func (s *fieldScanner) double() float64 {
	v, n := protowire.ConsumeFixed64(s.buf)
	if n < 0 {
		s.err = protowire.ParseError(n)
		return 0
	}
	s.buf = s.buf[n:]
	return math.Float64frombits(v)
}

func (s *fieldScanner) bytes() []byte {
	v, n := protowire.ConsumeBytes(s.buf)
	if n < 0 {
		s.err = protowire.ParseError(n)
		return nil
	}
	s.buf = s.buf[n:]
	return v
}

func (s *fieldScanner) skip(num protowire.Number, typ protowire.Type) {
	n := protowire.ConsumeFieldValue(num, typ, s.buf)
	if n < 0 {
		s.err = protowire.ParseError(n)
		return
	}
	s.buf = s.buf[n:]
}

func parsePackedInts(b []byte) ([]int, error) {
	var out []int
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, int(v))
		b = b[n:]
	}
	return out, nil
}

func parsePackedFloats(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("packed float field has %d trailing bytes", len(b)%4)
	}
	out := make([]float32, 0, len(b)/4)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, math.Float32frombits(v))
		b = b[n:]
	}
	return out, nil
}

func unmarshalWeightTensor(b []byte) (WeightTensor, error) {
	var w WeightTensor
	s := &fieldScanner{buf: b}
	for {
		num, typ, ok := s.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			w.Name = string(s.bytes())
		case 2:
			shape, err := parsePackedInts(s.bytes())
			if err != nil {
				return w, err
			}
			w.Shape = shape
		case 3:
			data, err := parsePackedFloats(s.bytes())
			if err != nil {
				return w, err
			}
			w.Data = data
		case 4:
			w.Type = string(s.bytes())
		default:
			s.skip(num, typ)
		}
	}
	return w, s.err
}

func unmarshalOptimizerTensor(b []byte) (OptimizerTensor, error) {
	var t OptimizerTensor
	s := &fieldScanner{buf: b}
	for {
		num, typ, ok := s.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			t.Name = string(s.bytes())
		case 2:
			shape, err := parsePackedInts(s.bytes())
			if err != nil {
				return t, err
			}
			t.Shape = shape
		case 3:
			data, err := parsePackedFloats(s.bytes())
			if err != nil {
				return t, err
			}
			t.Data = data
		case 4:
			t.StateType = string(s.bytes())
		default:
			s.skip(num, typ)
		}
	}
	return t, s.err
}

func unmarshalOptimizerState(b []byte) (*OptimizerState, error) {
	state := &OptimizerState{Parameters: make(map[string]float64)}
	s := &fieldScanner{buf: b}
	for {
		num, typ, ok := s.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			state.Type = string(s.bytes())
		case 2:
			entry := &fieldScanner{buf: s.bytes()}
			var key string
			var value float64
			for {
				enum, etyp, eok := entry.next()
				if !eok {
					break
				}
				switch enum {
				case 1:
					key = string(entry.bytes())
				case 2:
					value = entry.double()
				default:
					entry.skip(enum, etyp)
				}
			}
			if entry.err != nil {
				return nil, entry.err
			}
			state.Parameters[key] = value
		case 3:
			tensor, err := unmarshalOptimizerTensor(s.bytes())
			if err != nil {
				return nil, err
			}
			state.StateData = append(state.StateData, tensor)
		default:
			s.skip(num, typ)
		}
	}
	return state, s.err
}

func unmarshalMetadata(b []byte) (CheckpointMetadata, error) {
	var m CheckpointMetadata
	s := &fieldScanner{buf: b}
	for {
		num, typ, ok := s.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			m.Version = string(s.bytes())
		case 2:
			m.Framework = string(s.bytes())
		case 3:
			m.CreatedAt = time.Unix(int64(s.varint()), 0).UTC()
		case 4:
			m.Description = string(s.bytes())
		default:
			s.skip(num, typ)
		}
	}
	return m, s.err
}

func unmarshalCheckpoint(b []byte) (*Checkpoint, error) {
	c := &Checkpoint{}
	s := &fieldScanner{buf: b}
	for {
		num, typ, ok := s.next()
		if !ok {
			break
		}
		switch num {
		case 1:
			c.Epoch = int(s.varint())
		case 2:
			c.ModelName = string(s.bytes())
		case 3:
			c.BestSensitivity = s.double()
		case 4:
			c.PatienceCounter = int(s.varint())
		case 5:
			c.Accuracy = s.double()
		case 6:
			w, err := unmarshalWeightTensor(s.bytes())
			if err != nil {
				return nil, err
			}
			c.Weights = append(c.Weights, w)
		case 7:
			state, err := unmarshalOptimizerState(s.bytes())
			if err != nil {
				return nil, err
			}
			c.OptimizerState = state
		case 8:
			m, err := unmarshalMetadata(s.bytes())
			if err != nil {
				return nil, err
			}
			c.Metadata = m
		default:
			s.skip(num, typ)
		}
	}
	return c, s.err
}
