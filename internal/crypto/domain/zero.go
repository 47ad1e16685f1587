package domain

// Zero overwrites b with zeros. Used on plaintext key material and decrypted payloads
// once they are no longer needed.
func Zero(b []byte) {
	clear(b)
}
