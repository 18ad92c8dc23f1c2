// Package domain models DSCOVR 1-minute magnetometer (m1m) data.
//
// # Data Source
//
// Measurements come from the NOAA DSCOVR spacecraft's fluxgate
// magnetometer, distributed as daily NetCDF files (e.g.
// oe_m1m_dscovr_sYYYYMMDD000000_*.nc). Each file carries five
// equal-length 1-D arrays indexed by observation:
//
//	time    — milliseconds since the Unix epoch
//	bx_gsm  — X field component, GSM frame, nanotesla
//	by_gsm  — Y field component, GSM frame, nanotesla
//	bz_gsm  — Z field component, GSM frame, nanotesla
//	bt      — total field magnitude, nanotesla
//
// GSM (Geocentric Solar Magnetospheric) is a magnetospheric reference
// frame; it matters to downstream consumers, not to the conversion.
//
// # Missing Values
//
// The files document missing_value = -99999. In practice missing samples
// are detected with a looser threshold: anything at or below -90000 is
// treated as missing. The margin absorbs fill-value drift across file
// versions (scaled fills, float widening). -90000.0 exactly is missing;
// -89999.9 is a real measurement. Missing values become nil pointers in
// [MagRecord] and render as JSON null.
//
// # Record Assembly
//
// Index i across all five arrays is the same observation, so the arrays
// must be equal length; [AssembleRecords] rejects misaligned input. An
// observation whose time is missing is dropped entirely. Field values
// other than time are independently nullable: a record can have a valid
// time and a null bt.
package domain
