package util

// SizedBuf is a scratch byte region reused across commands. Capacity
// grows monotonically and never shrinks, so a later smaller request
// reuses already-allocated memory. Contents beyond a previous Ensure are
// undefined until written.
type SizedBuf struct {
	buf []byte
}

// Ensure returns a slice of exactly n bytes backed by the scratch
// region, reallocating (doubling, or exact fit if larger) only when the
// current capacity is insufficient.
func (s *SizedBuf) Ensure(n int) []byte {
	if n > cap(s.buf) {
		newCap := 2 * cap(s.buf)
		if newCap < n {
			newCap = n
		}
		s.buf = make([]byte, newCap)
	}
	return s.buf[:n:cap(s.buf)]
}

func (s *SizedBuf) Cap() int {
	return cap(s.buf)
}
