package checksum

import "crypto/sha256"

// Sha192 computes SHA-256 over data, then folds the 256-bit digest down to
// 192 bits by XORing its third 64-bit word into its second, and returns the
// first 24 bytes of the folded result. This fully supports the SHA-192
// check-code for fsck's verification path.
//
// reconstruct does not re-derive SHA-192 (see UnsupportedAlgorithmError);
// that restriction lives in the reconstruct driver, not here -- this
// function is correct and total for any input.
func Sha192(data []byte) [24]byte {
	digest := sha256.Sum256(data)

	var folded [24]byte
	copy(folded[0:8], digest[0:8])   // W0 unchanged
	for i := 0; i < 8; i++ {
		folded[8+i] = digest[8+i] ^ digest[16+i] // W1 XOR W2
	}
	copy(folded[16:24], digest[16:24]) // W2 unchanged
	return folded
}
