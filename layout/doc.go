// Package layout computes linear-memory size and alignment for
// WIT-described types.
//
// The MVS toolchain describes the element types of witness-parameterized
// containers in WIT. The calculator here turns those descriptions into
// the byte size and alignment a witness needs:
//
//	calc := layout.NewCalculator()
//	info := calc.Calculate(witType)
//	// info.Size, info.Align, info.FieldOffs available
//
// Layout follows the Canonical ABI rules: primitive size equals
// alignment, record fields are laid out sequentially with padding,
// variants place the payload after an aligned discriminant, and lists
// and strings are (pointer, length) pairs whose content lives elsewhere.
package layout
