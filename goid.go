package ecoro

import (
	"bytes"
	"runtime"
	"strconv"
)

// goid returns the id of the calling goroutine. The runtime does not
// expose goroutine ids directly, so this parses the header line of a
// single-goroutine stack trace: "goroutine 123 [running]:".
func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	s := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}

	id, err := strconv.ParseUint(string(s), 10, 64)
	if err != nil {
		panic("ecoro: cannot parse goroutine id: " + err.Error())
	}
	return id
}
