// SPDX-License-Identifier: MIT
/*
Package bitint holds the power-of-two helpers used to size FFT buffers.

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two are preserved:

	size=8: bits.Len(7) = 3, 1<<3 = 8
	size=9: bits.Len(8) = 4, 1<<4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Sizes <= 0
// return 1.
//
//	Input  Output
//	4      4
//	735    1024
//	0      1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
// Powers of two have exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}
