package checksum

import "encoding/binary"

// xxHash64's fixed prime constants.
const (
	prime1 uint64 = 11400714785074694791
	prime2 uint64 = 14029467366897019727
	prime3 uint64 = 1609587929392839161
	prime4 uint64 = 9650029242287828579
	prime5 uint64 = 2870177450012600261
)

func rotl64(x uint64, r uint) uint64 {
	return (x << r) | (x >> (64 - r))
}

func xxround(acc, input uint64) uint64 {
	acc += input * prime2
	acc = rotl64(acc, 31)
	acc *= prime1
	return acc
}

func mergeRound(acc, val uint64) uint64 {
	val = xxround(0, val)
	acc ^= val
	acc = acc*prime1 + prime4
	return acc
}

// Xxhash64 computes the XXH64 digest of data using the given seed. HAMMER2
// always calls this with types.XxhSeed.
func Xxhash64(data []byte, seed uint64) uint64 {
	var h64 uint64
	n := len(data)
	p := 0

	if n >= 32 {
		v1 := seed + prime1 + prime2
		v2 := seed + prime2
		v3 := seed
		v4 := seed - prime1

		for ; p+32 <= n; p += 32 {
			v1 = xxround(v1, binary.LittleEndian.Uint64(data[p:]))
			v2 = xxround(v2, binary.LittleEndian.Uint64(data[p+8:]))
			v3 = xxround(v3, binary.LittleEndian.Uint64(data[p+16:]))
			v4 = xxround(v4, binary.LittleEndian.Uint64(data[p+24:]))
		}

		h64 = rotl64(v1, 1) + rotl64(v2, 7) + rotl64(v3, 12) + rotl64(v4, 18)
		h64 = mergeRound(h64, v1)
		h64 = mergeRound(h64, v2)
		h64 = mergeRound(h64, v3)
		h64 = mergeRound(h64, v4)
	} else {
		h64 = seed + prime5
	}

	h64 += uint64(n)

	for ; p+8 <= n; p += 8 {
		k1 := xxround(0, binary.LittleEndian.Uint64(data[p:]))
		h64 ^= k1
		h64 = rotl64(h64, 27)*prime1 + prime4
	}
	if p+4 <= n {
		h64 ^= uint64(binary.LittleEndian.Uint32(data[p:])) * prime1
		h64 = rotl64(h64, 23)*prime2 + prime3
		p += 4
	}
	for ; p < n; p++ {
		h64 ^= uint64(data[p]) * prime5
		h64 = rotl64(h64, 11) * prime1
	}

	h64 ^= h64 >> 33
	h64 *= prime2
	h64 ^= h64 >> 29
	h64 *= prime3
	h64 ^= h64 >> 32

	return h64
}
