// Package checksum fingerprints import input with XXH3-64.
//
// The fingerprint is computed while the file streams to the server, so the
// input is read exactly once:
//
//	tee, fp := checksum.TeeReader(file)
//	// ... consume tee ...
//	log.Printf("input fingerprint %s", fp.Sum())
//
// Fingerprints are rendered as 16 lowercase hex digits. They identify content,
// they are not a security measure.
package checksum
