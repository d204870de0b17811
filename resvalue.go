package axml

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Typed value data types, from ResourceTypes.h.
const (
	typeNull             = 0x00
	typeReference        = 0x01
	typeAttribute        = 0x02
	typeString           = 0x03
	typeFloat            = 0x04
	typeDimension        = 0x05
	typeFraction         = 0x06
	typeDynamicReference = 0x07
	typeDynamicAttribute = 0x08
	typeIntDec           = 0x10
	typeIntHex           = 0x11
	typeIntBool          = 0x12
	typeIntColorArgb8    = 0x1c
	typeIntColorRgb8     = 0x1d
	typeIntColorArgb4    = 0x1e
	typeIntColorRgb4     = 0x1f
)

// resValue is the fixed 8-byte typed value attached to every attribute:
// size (reserved), res0 (reserved), the data type tag and the raw data word.
type resValue struct {
	dataType uint8
	data     uint32
}

func parseResValue(r *bytes.Reader) (resValue, error) {
	var v resValue
	var size uint16
	var res0 uint8

	if err := read(r, &size); err != nil {
		return v, err
	}

	if err := read(r, &res0); err != nil {
		return v, err
	}

	if err := read(r, &v.dataType); err != nil {
		return v, err
	}

	switch v.dataType {
	case typeNull, typeReference, typeAttribute, typeString, typeFloat,
		typeDimension, typeFraction, typeDynamicReference, typeDynamicAttribute,
		typeIntDec, typeIntHex, typeIntBool,
		typeIntColorArgb8, typeIntColorRgb8, typeIntColorArgb4, typeIntColorRgb4:
	default:
		return v, fmt.Errorf("%w: 0x%02x", ErrUnknownValueType, v.dataType)
	}

	if err := read(r, &v.data); err != nil {
		return v, err
	}

	return v, nil
}

// Unit suffixes for complex dimension and fraction values, indexed by the
// low nibble of the data word.
var (
	dimensionUnits = [...]string{"px", "dip", "sp", "pt", "in", "mm"}
	fractionUnits  = [...]string{"%", "%p"}
	radixMults     = [...]float64{1.0 / (1 << 8), 1.0 / (1 << 15), 1.0 / (1 << 23), 1.0 / (1 << 31)}
)

// complexToFloat expands the mantissa/radix encoding used by dimension and
// fraction values.
func complexToFloat(data uint32) float64 {
	return float64(int32(data&0xffffff00)) * radixMults[(data>>4)&0x3]
}

// String renders the value to its textual form. Used for every attribute
// whose raw value index is the "use typed value" sentinel, except strings,
// which are resolved against the pool at the attribute site.
func (v resValue) String() string {
	switch v.dataType {
	case typeNull:
		return ""
	case typeReference, typeDynamicReference:
		return "type1/" + strconv.FormatUint(uint64(v.data), 10)
	case typeAttribute, typeDynamicAttribute:
		return "?" + strconv.FormatUint(uint64(v.data), 10)
	case typeFloat:
		return strconv.FormatFloat(float64(math.Float32frombits(v.data)), 'g', -1, 32)
	case typeDimension:
		unit := "?"
		if idx := v.data & 0xf; idx < uint32(len(dimensionUnits)) {
			unit = dimensionUnits[idx]
		}
		return fmt.Sprintf("%g%s", complexToFloat(v.data), unit)
	case typeFraction:
		unit := "?"
		if idx := v.data & 0xf; idx < uint32(len(fractionUnits)) {
			unit = fractionUnits[idx]
		}
		return fmt.Sprintf("%g%s", complexToFloat(v.data)*100, unit)
	case typeIntHex:
		return fmt.Sprintf("0x%x", v.data)
	case typeIntBool:
		return strconv.FormatBool(v.data != 0)
	case typeIntColorArgb8:
		return fmt.Sprintf("#%08x", v.data)
	case typeIntColorRgb8:
		return fmt.Sprintf("#%06x", v.data&0xffffff)
	case typeIntColorArgb4:
		return fmt.Sprintf("#%04x", v.data&0xffff)
	case typeIntColorRgb4:
		return fmt.Sprintf("#%03x", v.data&0xfff)
	default: // typeIntDec and anything the format adds later
		return strconv.FormatInt(int64(int32(v.data)), 10)
	}
}
