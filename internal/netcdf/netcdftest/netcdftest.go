// Package netcdftest builds small classic-format (CDF-1) NetCDF byte
// streams for tests. It supports 1-D numeric variables in both the fixed
// layout (each variable on its own dimension) and the record layout
// (every variable along one unlimited "time" dimension), plus char and
// double attributes.
package netcdftest

import (
	"encoding/binary"
	"math"

	"github.com/couchcryptid/dscovr-mag-etl/internal/netcdf"
)

// Attr is an attribute to encode. Text set means an NC_CHAR attribute;
// otherwise Values are encoded as NC_DOUBLE.
type Attr struct {
	Name   string
	Text   string
	Values []float64
}

// Var is a 1-D variable to encode.
type Var struct {
	Name   string
	Type   netcdf.Type
	Attrs  []Attr
	Values []float64
}

// Build encodes vars in the fixed layout, each on its own dimension named
// "<name>_n". Variables may have different lengths. Panics on empty
// variables (a zero-length fixed dimension is not representable in the
// classic format; use BuildRecord for that).
func Build(global []Attr, vars ...Var) []byte {
	for _, v := range vars {
		if len(v.Values) == 0 {
			panic("netcdftest: fixed variables must be non-empty")
		}
	}
	return encode(false, global, vars)
}

// BuildRecord encodes vars along a single unlimited "time" dimension.
// All variables must have the same length (the record count), which may
// be zero.
func BuildRecord(global []Attr, vars ...Var) []byte {
	for _, v := range vars {
		if len(v.Values) != len(vars[0].Values) {
			panic("netcdftest: record variables must have equal length")
		}
	}
	return encode(true, global, vars)
}

type dim struct {
	name   string
	length uint32
}

func encode(record bool, global []Attr, vars []Var) []byte {
	var dims []dim
	dimOf := make([]uint32, len(vars))
	var numrecs uint32

	if record {
		dims = []dim{{name: "time", length: 0}}
		if len(vars) > 0 {
			numrecs = uint32(len(vars[0].Values))
		}
	} else {
		for i, v := range vars {
			dims = append(dims, dim{name: v.Name + "_n", length: uint32(len(v.Values))})
			dimOf[i] = uint32(i)
		}
	}

	// Slot size per variable: one padded value per record, or the whole
	// padded array for fixed variables. A lone record variable is stored
	// without inter-record padding.
	slots := make([]int, len(vars))
	for i, v := range vars {
		size := typeSize(v.Type)
		if record {
			slots[i] = pad4(size)
		} else {
			slots[i] = pad4(size * len(v.Values))
		}
	}
	if record && len(vars) == 1 {
		slots[0] = typeSize(vars[0].Type)
	}

	// First pass with zero begins to learn the header length; begins are
	// fixed-width so the length does not change on the second pass.
	begins := make([]uint32, len(vars))
	headerLen := len(encodeHeader(numrecs, dims, global, vars, dimOf, slots, begins))
	off := uint32(headerLen)
	for i := range vars {
		begins[i] = off
		off += uint32(slots[i])
	}

	buf := encodeHeader(numrecs, dims, global, vars, dimOf, slots, begins)
	if record {
		for r := 0; r < int(numrecs); r++ {
			for i, v := range vars {
				buf = appendValue(buf, v.Type, v.Values[r], slots[i])
			}
		}
		return buf
	}
	for i, v := range vars {
		chunk := make([]byte, 0, slots[i])
		for _, val := range v.Values {
			chunk = appendValue(chunk, v.Type, val, typeSize(v.Type))
		}
		for len(chunk) < slots[i] {
			chunk = append(chunk, 0)
		}
		buf = append(buf, chunk...)
	}
	return buf
}

func encodeHeader(numrecs uint32, dims []dim, global []Attr, vars []Var, dimOf []uint32, slots []int, begins []uint32) []byte {
	buf := []byte{'C', 'D', 'F', 1}
	buf = binary.BigEndian.AppendUint32(buf, numrecs)

	buf = appendList(buf, 0x0A, len(dims))
	for _, d := range dims {
		buf = appendName(buf, d.name)
		buf = binary.BigEndian.AppendUint32(buf, d.length)
	}

	buf = appendAttrs(buf, global)

	buf = appendList(buf, 0x0B, len(vars))
	for i, v := range vars {
		buf = appendName(buf, v.Name)
		buf = binary.BigEndian.AppendUint32(buf, 1) // ndims
		buf = binary.BigEndian.AppendUint32(buf, dimOf[i])
		buf = appendAttrs(buf, v.Attrs)
		buf = binary.BigEndian.AppendUint32(buf, uint32(v.Type))
		buf = binary.BigEndian.AppendUint32(buf, uint32(slots[i]))
		buf = binary.BigEndian.AppendUint32(buf, begins[i])
	}
	return buf
}

func appendAttrs(buf []byte, attrs []Attr) []byte {
	buf = appendList(buf, 0x0C, len(attrs))
	for _, a := range attrs {
		buf = appendName(buf, a.Name)
		if a.Text != "" {
			buf = binary.BigEndian.AppendUint32(buf, uint32(netcdf.TypeChar))
			buf = binary.BigEndian.AppendUint32(buf, uint32(len(a.Text)))
			buf = appendPadded(buf, []byte(a.Text))
			continue
		}
		buf = binary.BigEndian.AppendUint32(buf, uint32(netcdf.TypeDouble))
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(a.Values)))
		for _, v := range a.Values {
			buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}
	return buf
}

// appendList writes a list tag and count, or the ABSENT marker for an
// empty list.
func appendList(buf []byte, tag uint32, n int) []byte {
	if n == 0 {
		tag = 0
	}
	buf = binary.BigEndian.AppendUint32(buf, tag)
	return binary.BigEndian.AppendUint32(buf, uint32(n))
}

func appendName(buf []byte, name string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(name)))
	return appendPadded(buf, []byte(name))
}

func appendPadded(buf, b []byte) []byte {
	buf = append(buf, b...)
	for i := len(b); i < pad4(len(b)); i++ {
		buf = append(buf, 0)
	}
	return buf
}

// appendValue encodes one value in the variable's on-disk type and pads
// the slot to slotSize.
func appendValue(buf []byte, t netcdf.Type, v float64, slotSize int) []byte {
	switch t {
	case netcdf.TypeByte:
		buf = append(buf, byte(int8(v)))
	case netcdf.TypeShort:
		buf = binary.BigEndian.AppendUint16(buf, uint16(int16(v)))
	case netcdf.TypeInt:
		buf = binary.BigEndian.AppendUint32(buf, uint32(int32(v)))
	case netcdf.TypeFloat:
		buf = binary.BigEndian.AppendUint32(buf, math.Float32bits(float32(v)))
	case netcdf.TypeDouble:
		buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(v))
	default:
		panic("netcdftest: unsupported type")
	}
	for pad := slotSize - typeSize(t); pad > 0; pad-- {
		buf = append(buf, 0)
	}
	return buf
}

func typeSize(t netcdf.Type) int {
	switch t {
	case netcdf.TypeByte, netcdf.TypeChar:
		return 1
	case netcdf.TypeShort:
		return 2
	case netcdf.TypeInt, netcdf.TypeFloat:
		return 4
	case netcdf.TypeDouble:
		return 8
	default:
		panic("netcdftest: unsupported type")
	}
}

func pad4(n int) int {
	return (n + 3) &^ 3
}
