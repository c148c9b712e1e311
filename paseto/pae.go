package paseto

import "encoding/binary"

// PAE is the pre-authentication encoding: LE64(count) followed by LE64(len)‖bytes
// for each piece. The most significant bit of every LE64 is cleared.
func PAE(pieces ...[]byte) []byte {
	size := 8
	for _, p := range pieces {
		size += 8 + len(p)
	}
	out := make([]byte, 0, size)
	out = le64(out, uint64(len(pieces)))
	for _, p := range pieces {
		out = le64(out, uint64(len(p)))
		out = append(out, p...)
	}
	return out
}

func le64(dst []byte, n uint64) []byte {
	return binary.LittleEndian.AppendUint64(dst, n&^(1<<63))
}
