// Package netcdf reads classic-format NetCDF files (CDF-1 and CDF-2).
//
// The classic format is a self-describing binary container: a big-endian
// header listing dimensions, global attributes, and variables, followed by
// the variable data. Fixed-size variables are stored contiguously at the
// byte offset recorded in their header entry; variables along the unlimited
// (record) dimension are interleaved record by record.
//
// Layout reference: the NetCDF classic format specification,
// https://docs.unidata.ucar.edu/netcdf-c/current/file_format_specifications.html
//
//	header  = magic numrecs dim_list gatt_list var_list
//	magic   = 'C' 'D' 'F' version        (version 1 = CDF-1, 2 = CDF-2)
//	numrecs = u32                        (0xFFFFFFFF while streaming)
//	lists   = ABSENT | tag u32(count) entries...
//
// All names and attribute values are padded to four-byte boundaries.
//
// The whole file is loaded into memory on Open; DSCOVR daily files are a
// few hundred kilobytes, so there is no need for mmap or windowed reads.
// The package only decodes; it never writes NetCDF.
package netcdf
