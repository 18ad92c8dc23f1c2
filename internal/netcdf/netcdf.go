package netcdf

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Type identifies the external data type of a variable or attribute value.
type Type uint32

// External types defined by the classic format.
const (
	TypeByte   Type = 1 // NC_BYTE, signed 8-bit integer
	TypeChar   Type = 2 // NC_CHAR, text
	TypeShort  Type = 3 // NC_SHORT, signed 16-bit integer
	TypeInt    Type = 4 // NC_INT, signed 32-bit integer
	TypeFloat  Type = 5 // NC_FLOAT, IEEE 754 single
	TypeDouble Type = 6 // NC_DOUBLE, IEEE 754 double
)

// size returns the on-disk size of one value in bytes, or 0 for an
// unknown type.
func (t Type) size() int {
	switch t {
	case TypeByte, TypeChar:
		return 1
	case TypeShort:
		return 2
	case TypeInt, TypeFloat:
		return 4
	case TypeDouble:
		return 8
	default:
		return 0
	}
}

func (t Type) String() string {
	switch t {
	case TypeByte:
		return "byte"
	case TypeChar:
		return "char"
	case TypeShort:
		return "short"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

// List tags in the header. An absent list is encoded as two zero words.
const (
	tagDimension = 0x0A
	tagVariable  = 0x0B
	tagAttribute = 0x0C
)

// streamingNumRecs marks a file whose record count was unknown at write
// time; the true count is derived from the file length.
const streamingNumRecs = 0xFFFFFFFF

// Dimension is a named axis. Length 0 marks the record (unlimited)
// dimension; its effective length is File.NumRecs.
type Dimension struct {
	Name   string
	Length int
}

// Attribute is a named metadata value attached to a variable or to the
// file itself. Char attributes carry Text; numeric attributes carry
// Values widened to float64.
type Attribute struct {
	Name   string
	Type   Type
	Values []float64
	Text   string
}

// Variable describes one named array in the container.
type Variable struct {
	Name  string
	Dims  []int // indices into File.Dims
	Attrs []Attribute
	Type  Type

	vsize    int   // per-record byte size for record vars, total otherwise (padded)
	begin    int64 // byte offset of the first value
	isRecord bool
	nelems   int // values per record for record vars, total values otherwise
}

// Attr returns the variable attribute with the given name.
func (v *Variable) Attr(name string) (Attribute, bool) {
	for _, a := range v.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// File is a decoded NetCDF classic container. It is read-only; Close
// releases the underlying buffer.
type File struct {
	Version byte // 1 for CDF-1, 2 for CDF-2 (64-bit offsets)
	NumRecs int
	Dims    []Dimension
	Attrs   []Attribute
	Vars    []Variable

	data    []byte
	recSize int
}

// Open reads and decodes the NetCDF file at path.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("netcdf: open %s: %w", path, err)
	}
	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return f, nil
}

// Decode parses a NetCDF classic byte stream. The File keeps a reference
// to data; the caller must not mutate it.
func Decode(data []byte) (*File, error) {
	if len(data) < 4 || data[0] != 'C' || data[1] != 'D' || data[2] != 'F' {
		return nil, ErrNotNetCDF
	}
	version := data[3]
	if version != 1 && version != 2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	f := &File{Version: version, data: data}
	c := &cursor{data: data, off: 4}

	rawNumRecs, err := c.u32()
	if err != nil {
		return nil, err
	}

	if err := f.parseDims(c); err != nil {
		return nil, err
	}
	if f.Attrs, err = parseAttrList(c); err != nil {
		return nil, err
	}
	if err := f.parseVars(c); err != nil {
		return nil, err
	}
	if err := f.finishRecordLayout(rawNumRecs); err != nil {
		return nil, err
	}
	return f, nil
}

// Close releases the decoded data. Further reads return ErrClosed.
func (f *File) Close() error {
	f.data = nil
	return nil
}

// Var returns the variable with the given name.
func (f *File) Var(name string) (*Variable, bool) {
	for i := range f.Vars {
		if f.Vars[i].Name == name {
			return &f.Vars[i], true
		}
	}
	return nil, false
}

// Float64s reads a one-dimensional numeric variable as float64 values,
// widening from the variable's on-disk type. Record variables are
// de-interleaved from the record section.
func (f *File) Float64s(name string) ([]float64, error) {
	if f.data == nil {
		return nil, ErrClosed
	}
	v, ok := f.Var(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrVariableNotFound, name)
	}
	if v.Type == TypeChar {
		return nil, fmt.Errorf("%w: %q is %s", ErrNotNumeric, name, v.Type)
	}
	if len(v.Dims) != 1 {
		return nil, fmt.Errorf("%w: %q has %d dimensions", ErrNotOneDimensional, name, len(v.Dims))
	}

	size := v.Type.size()
	count := v.nelems
	stride := size
	if v.isRecord {
		count = f.NumRecs
		stride = f.recSize
	}
	if count == 0 {
		return []float64{}, nil
	}

	last := v.begin + int64(count-1)*int64(stride) + int64(size)
	if v.begin < 0 || last > int64(len(f.data)) {
		return nil, fmt.Errorf("%w: data for %q ends at %d, file is %d bytes", ErrTruncated, name, last, len(f.data))
	}

	out := make([]float64, count)
	for i := range out {
		off := v.begin + int64(i)*int64(stride)
		out[i] = decodeValue(f.data[off:], v.Type)
	}
	return out, nil
}

// parseDims reads the dimension list.
func (f *File) parseDims(c *cursor) error {
	n, err := c.list(tagDimension)
	if err != nil {
		return err
	}
	f.Dims = make([]Dimension, 0, n)
	for i := 0; i < n; i++ {
		name, err := c.name()
		if err != nil {
			return err
		}
		length, err := c.u32()
		if err != nil {
			return err
		}
		f.Dims = append(f.Dims, Dimension{Name: name, Length: int(length)})
	}
	return nil
}

// parseVars reads the variable list.
func (f *File) parseVars(c *cursor) error {
	n, err := c.list(tagVariable)
	if err != nil {
		return err
	}
	f.Vars = make([]Variable, 0, n)
	for i := 0; i < n; i++ {
		v, err := f.parseVar(c)
		if err != nil {
			return err
		}
		f.Vars = append(f.Vars, v)
	}
	return nil
}

func (f *File) parseVar(c *cursor) (Variable, error) {
	var v Variable
	var err error

	if v.Name, err = c.name(); err != nil {
		return v, err
	}
	ndims, err := c.u32()
	if err != nil {
		return v, err
	}
	if int(ndims) > len(f.Dims) {
		return v, fmt.Errorf("%w: variable %q declares %d dimensions", ErrCorrupt, v.Name, ndims)
	}
	v.Dims = make([]int, ndims)
	for j := range v.Dims {
		id, err := c.u32()
		if err != nil {
			return v, err
		}
		if int(id) >= len(f.Dims) {
			return v, fmt.Errorf("%w: variable %q references dimension %d of %d", ErrCorrupt, v.Name, id, len(f.Dims))
		}
		v.Dims[j] = int(id)
	}
	if v.Attrs, err = parseAttrList(c); err != nil {
		return v, err
	}
	typ, err := c.u32()
	if err != nil {
		return v, err
	}
	v.Type = Type(typ)
	if v.Type.size() == 0 {
		return v, fmt.Errorf("%w: variable %q has unknown type %d", ErrCorrupt, v.Name, typ)
	}
	vsize, err := c.u32()
	if err != nil {
		return v, err
	}
	v.vsize = int(vsize)

	if f.Version == 2 {
		begin, err := c.u64()
		if err != nil {
			return v, err
		}
		v.begin = int64(begin)
	} else {
		begin, err := c.u32()
		if err != nil {
			return v, err
		}
		v.begin = int64(begin)
	}

	// The record dimension, when used, is always the leading one.
	v.nelems = 1
	for j, id := range v.Dims {
		if f.Dims[id].Length == 0 && j == 0 {
			v.isRecord = true
			continue
		}
		v.nelems *= f.Dims[id].Length
	}
	return v, nil
}

// finishRecordLayout computes the record stride and resolves the record
// count, deriving it from the file length for streaming files.
func (f *File) finishRecordLayout(rawNumRecs uint32) error {
	var recVars int
	firstBegin := int64(-1)
	for i := range f.Vars {
		v := &f.Vars[i]
		if !v.isRecord {
			continue
		}
		recVars++
		f.recSize += v.vsize
		if firstBegin < 0 || v.begin < firstBegin {
			firstBegin = v.begin
		}
	}
	if recVars == 1 {
		// A lone record variable is stored without inter-record padding.
		for i := range f.Vars {
			if f.Vars[i].isRecord {
				f.recSize = f.Vars[i].nelems * f.Vars[i].Type.size()
			}
		}
	}

	if rawNumRecs != streamingNumRecs {
		f.NumRecs = int(rawNumRecs)
		return nil
	}
	if recVars == 0 {
		f.NumRecs = 0
		return nil
	}
	if f.recSize <= 0 || firstBegin < 0 || firstBegin > int64(len(f.data)) {
		return fmt.Errorf("%w: cannot derive record count for streaming file", ErrCorrupt)
	}
	f.NumRecs = int((int64(len(f.data)) - firstBegin) / int64(f.recSize))
	return nil
}

// parseAttrList reads an attribute list (global or per-variable).
func parseAttrList(c *cursor) ([]Attribute, error) {
	n, err := c.list(tagAttribute)
	if err != nil {
		return nil, err
	}
	attrs := make([]Attribute, 0, n)
	for i := 0; i < n; i++ {
		a, err := parseAttr(c)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}
	return attrs, nil
}

func parseAttr(c *cursor) (Attribute, error) {
	var a Attribute
	var err error

	if a.Name, err = c.name(); err != nil {
		return a, err
	}
	typ, err := c.u32()
	if err != nil {
		return a, err
	}
	a.Type = Type(typ)
	size := a.Type.size()
	if size == 0 {
		return a, fmt.Errorf("%w: attribute %q has unknown type %d", ErrCorrupt, a.Name, typ)
	}
	nelems, err := c.u32()
	if err != nil {
		return a, err
	}
	raw, err := c.bytes(pad4(int(nelems) * size))
	if err != nil {
		return a, err
	}
	raw = raw[:int(nelems)*size]

	if a.Type == TypeChar {
		a.Text = string(raw)
		return a, nil
	}
	a.Values = make([]float64, nelems)
	for i := range a.Values {
		a.Values[i] = decodeValue(raw[i*size:], a.Type)
	}
	return a, nil
}

// decodeValue widens one big-endian value to float64. The caller
// guarantees len(b) >= t.size().
func decodeValue(b []byte, t Type) float64 {
	switch t {
	case TypeByte:
		return float64(int8(b[0]))
	case TypeShort:
		return float64(int16(binary.BigEndian.Uint16(b)))
	case TypeInt:
		return float64(int32(binary.BigEndian.Uint32(b)))
	case TypeFloat:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
	case TypeDouble:
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	default:
		return 0
	}
}

// pad4 rounds n up to the next multiple of four.
func pad4(n int) int {
	return (n + 3) &^ 3
}

// cursor walks the header with bounds checking.
type cursor struct {
	data []byte
	off  int
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if n < 0 || c.off+n > len(c.data) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d", ErrTruncated, n, c.off)
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c *cursor) u64() (uint64, error) {
	b, err := c.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// name reads a length-prefixed string padded to a four-byte boundary.
func (c *cursor) name() (string, error) {
	n, err := c.u32()
	if err != nil {
		return "", err
	}
	b, err := c.bytes(pad4(int(n)))
	if err != nil {
		return "", err
	}
	return string(b[:n]), nil
}

// list reads a list header and returns the entry count. An absent list
// (two zero words) yields zero entries.
func (c *cursor) list(tag uint32) (int, error) {
	t, err := c.u32()
	if err != nil {
		return 0, err
	}
	n, err := c.u32()
	if err != nil {
		return 0, err
	}
	if t == 0 && n == 0 {
		return 0, nil
	}
	if t != tag {
		return 0, fmt.Errorf("%w: expected list tag 0x%02X, got 0x%02X", ErrCorrupt, tag, t)
	}
	return int(n), nil
}
