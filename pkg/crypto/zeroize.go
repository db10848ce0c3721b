package crypto

// Zeroize overwrites b with zeroes in place. Every scope that holds
// plaintext bytes, wrapped-key plaintext, or a derived seed must call this
// on all exit paths (success, error, panic/unwind) before releasing the
// backing array. The Go garbage collector gives no such guarantee on its
// own, so this is a contract callers must uphold explicitly, typically via
// defer immediately after allocation.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ZeroizeAll is a convenience wrapper for zeroing several buffers produced
// by a single operation (e.g. a symmetric key and its plaintext) in one
// defer statement.
func ZeroizeAll(bufs ...[]byte) {
	for _, b := range bufs {
		Zeroize(b)
	}
}
