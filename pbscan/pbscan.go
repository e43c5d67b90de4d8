// Package pbscan locates fields inside serialized protobuf messages without
// decoding them. All ranges are absolute offsets into the scanned buffer, so a
// range found at any nesting depth can be sliced out of the original bytes.
package pbscan

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var ErrMalformed = errors.New("malformed protobuf")

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

func (r Range) Of(buf []byte) []byte {
	return buf[r.Start:r.End:r.End]
}

// Shift moves the range by delta bytes.
func (r Range) Shift(delta int) Range {
	return Range{Start: r.Start + delta, End: r.End + delta}
}

func (r Range) IsEmpty() bool {
	return r.Start >= r.End
}

// Whole returns the range of the entire buffer.
func Whole(buf []byte) Range {
	return Range{End: len(buf)}
}

// Field is one top-level field occurrence.
type Field struct {
	Num  protowire.Number
	Type protowire.Type
	// Record spans tag and value.
	Record Range
	// Value spans the payload of a length-delimited field or the encoded
	// scalar for other wire types.
	Value Range
}

// Next parses the field starting at offset.
func Next(buf []byte, offset int) (Field, error) {
	num, typ, tagLen := protowire.ConsumeTag(buf[offset:])
	if tagLen < 0 {
		return Field{}, fmt.Errorf("%w: tag at %d: %v", ErrMalformed, offset, protowire.ParseError(tagLen))
	}

	valueStart := offset + tagLen

	if typ == protowire.BytesType {
		payload, n := protowire.ConsumeBytes(buf[valueStart:])
		if n < 0 {
			return Field{}, fmt.Errorf("%w: field %d at %d: %v", ErrMalformed, num, offset, protowire.ParseError(n))
		}

		end := valueStart + n

		return Field{
			Num:    num,
			Type:   typ,
			Record: Range{Start: offset, End: end},
			Value:  Range{Start: end - len(payload), End: end},
		}, nil
	}

	n := protowire.ConsumeFieldValue(num, typ, buf[valueStart:])
	if n < 0 {
		return Field{}, fmt.Errorf("%w: field %d at %d: %v", ErrMalformed, num, offset, protowire.ParseError(n))
	}

	return Field{
		Num:    num,
		Type:   typ,
		Record: Range{Start: offset, End: valueStart + n},
		Value:  Range{Start: valueStart, End: valueStart + n},
	}, nil
}

// Split walks top-level length-delimited records of field num from the start of
// buf and calls push with the length of every complete record. It returns the
// number of bytes consumed; anything after that is an incomplete or corrupt tail.
func Split(buf []byte, num protowire.Number, push func(n int)) int {
	offset := 0

	for offset < len(buf) {
		field, err := Next(buf, offset)
		if err != nil || field.Num != num || field.Type != protowire.BytesType {
			break
		}

		push(field.Record.Len())
		offset = field.Record.End
	}

	return offset
}

// Each calls fn for every top-level field of the message inside r.
func Each(buf []byte, r Range, fn func(Field) error) error {
	msg := buf[:r.End]

	for offset := r.Start; offset < r.End; {
		field, err := Next(msg, offset)
		if err != nil {
			return err
		}

		if err := fn(field); err != nil {
			return err
		}

		offset = field.Record.End
	}

	return nil
}

// Repeated calls fn with the value range of every occurrence of field num inside r.
func Repeated(buf []byte, r Range, num protowire.Number, fn func(Range) error) error {
	return Each(buf, r, func(f Field) error {
		if f.Num != num {
			return nil
		}

		return fn(f.Value)
	})
}

// Find follows a path of nested length-delimited fields starting at r and
// returns the value range of the last occurrence of the final field.
func Find(buf []byte, r Range, path ...protowire.Number) (Range, bool, error) {
	for _, num := range path {
		var (
			found  bool
			result Range
		)

		err := Each(buf, r, func(f Field) error {
			if f.Num == num {
				if f.Type != protowire.BytesType {
					return fmt.Errorf("%w: field %d is not length-delimited", ErrMalformed, num)
				}

				found, result = true, f.Value
			}

			return nil
		})
		if err != nil || !found {
			return Range{}, false, err
		}

		r = result
	}

	return r, true, nil
}

// Uint reads the last varint occurrence of field num inside r.
func Uint(buf []byte, r Range, num protowire.Number) (uint64, error) {
	var result uint64

	err := Each(buf, r, func(f Field) error {
		if f.Num != num {
			return nil
		}

		if f.Type != protowire.VarintType {
			return fmt.Errorf("%w: field %d is not a varint", ErrMalformed, num)
		}

		result, _ = protowire.ConsumeVarint(f.Value.Of(buf))

		return nil
	})

	return result, err
}

// String reads the last occurrence of string field num inside r.
func String(buf []byte, r Range, num protowire.Number) (string, error) {
	value, found, err := Find(buf, r, num)
	if err != nil || !found {
		return "", err
	}

	return string(value.Of(buf)), nil
}

// Varints calls fn for every element of repeated varint field num inside r,
// accepting both packed and unpacked encodings.
func Varints(buf []byte, r Range, num protowire.Number, fn func(uint64)) error {
	return Each(buf, r, func(f Field) error {
		if f.Num != num {
			return nil
		}

		switch f.Type {
		case protowire.VarintType:
			v, _ := protowire.ConsumeVarint(f.Value.Of(buf))
			fn(v)
		case protowire.BytesType:
			packed := f.Value.Of(buf)
			for len(packed) > 0 {
				v, n := protowire.ConsumeVarint(packed)
				if n < 0 {
					return fmt.Errorf("%w: packed field %d: %v", ErrMalformed, num, protowire.ParseError(n))
				}

				fn(v)
				packed = packed[n:]
			}
		default:
			return fmt.Errorf("%w: field %d has wire type %d", ErrMalformed, num, f.Type)
		}

		return nil
	})
}
