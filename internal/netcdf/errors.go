package netcdf

import "errors"

var (
	// ErrNotNetCDF is returned when the magic bytes are not "CDF".
	ErrNotNetCDF = errors.New("netcdf: not a NetCDF classic file")

	// ErrUnsupportedVersion is returned for format versions other than
	// CDF-1 and CDF-2 (e.g. CDF-5 or HDF5-based NetCDF-4 files).
	ErrUnsupportedVersion = errors.New("netcdf: unsupported format version")

	// ErrTruncated is returned when the header or a data section ends
	// before the byte counts it declares.
	ErrTruncated = errors.New("netcdf: file truncated")

	// ErrCorrupt is returned when the header contradicts itself, e.g. a
	// variable references a dimension that does not exist.
	ErrCorrupt = errors.New("netcdf: corrupt header")

	// ErrVariableNotFound is returned by lookups for an absent variable.
	ErrVariableNotFound = errors.New("netcdf: variable not found")

	// ErrNotNumeric is returned when a numeric read targets an NC_CHAR
	// variable.
	ErrNotNumeric = errors.New("netcdf: variable is not numeric")

	// ErrNotOneDimensional is returned when a 1-D read targets a variable
	// with a different rank.
	ErrNotOneDimensional = errors.New("netcdf: variable is not one-dimensional")

	// ErrClosed is returned when reading from a closed file.
	ErrClosed = errors.New("netcdf: file is closed")
)
