/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package sysinfo

/*****************************************************************************************************************/

import "github.com/pbnjay/memory"

/*****************************************************************************************************************/

// AvailableRAM reports free system RAM in bytes, or false when the platform
// does not expose this. The RAM-check capability of spec.md §9, a thin
// wrapper around pbnjay/memory so the rest of the module depends on an
// interface rather than a platform syscall.
func AvailableRAM() (bytes uint64, ok bool) {
	free := memory.FreeMemory()

	if free == 0 {
		return 0, false
	}

	return free, true
}

/*****************************************************************************************************************/

// TotalRAM reports total system RAM in bytes, or false when unavailable.
func TotalRAM() (bytes uint64, ok bool) {
	total := memory.TotalMemory()

	if total == 0 {
		return 0, false
	}

	return total, true
}

/*****************************************************************************************************************/

// CanLoadInParallel compares a requested index-file footprint against
// available RAM, per spec.md §5's "Resource admission" check. When RAM
// cannot be queried the check fails closed (conservative, as spec.md §9
// specifies for the unavailable case).
func CanLoadInParallel(indexSetBytes uint64) bool {
	free, ok := AvailableRAM()

	if !ok {
		return false
	}

	return indexSetBytes < free
}

/*****************************************************************************************************************/
