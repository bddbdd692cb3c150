package follow

import "os"

const tailChunkSize = 8192

// tailOffset returns the offset of the first byte of the last k lines of
// f, scanning backwards from size in fixed-size chunks. A file that does
// not end in a newline still counts its final partial line.
func tailOffset(f *os.File, size int64, k int) (int64, error) {
	if k <= 0 {
		return size, nil
	}

	var (
		off   = size
		found int
		buf   = make([]byte, tailChunkSize)
	)
	// A trailing newline terminates the last line rather than starting a
	// new one, so the first one scanned is not counted.
	skipTrailing := true
	for off > 0 {
		n := int64(len(buf))
		if off < n {
			n = off
		}
		off -= n
		if _, err := f.ReadAt(buf[:n], off); err != nil {
			return 0, err
		}
		for i := n - 1; i >= 0; i-- {
			if buf[i] != '\n' {
				skipTrailing = false
				continue
			}
			if skipTrailing {
				skipTrailing = false
				continue
			}
			found++
			if found == k {
				return off + i + 1, nil
			}
		}
	}
	return 0, nil
}
