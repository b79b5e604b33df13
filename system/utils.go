package system

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"
)

// The maximum size of a single line read from a client connection. Anything
// beyond this length is discarded up to the next newline.
var maxBufferSize = MaxLineSize

// FirstNotEmpty returns the first string passed in that is not an empty value.
func FirstNotEmpty(v ...string) string {
	for _, val := range v {
		if val != "" {
			return val
		}
	}
	return ""
}

// ScanReader reads newline delimited lines from the reader and passes each one
// to the callback with any trailing carriage return removed. Lines longer than
// the maximum buffer size are truncated and the remainder of the line is
// dropped. Scanning stops once the callback returns false or the reader is
// exhausted; io.EOF is never returned to the caller.
func ScanReader(r io.Reader, callback func(line []byte) bool) error {
	return ScanLines(r, func(line []byte, _ bool) bool {
		return callback(line)
	})
}

// ScanLines behaves like ScanReader but also tells the callback if the line
// was cut short because it exceeded the maximum buffer size.
func ScanLines(r io.Reader, callback func(line []byte, truncated bool) bool) error {
	br := bufio.NewReaderSize(r, 4096)
	// Avoid constantly re-allocating memory for every line by re-using the same
	// buffer and truncating it back to zero on each loop.
	var buf bytes.Buffer
	for {
		buf.Reset()
		var err error
		var line []byte
		var isPrefix bool
		var truncated bool

		for {
			line, isPrefix, err = br.ReadLine()
			if !truncated {
				ns := buf.Len() + len(line)
				if ns > maxBufferSize {
					buf.Write(line[:len(line)-(ns-maxBufferSize)])
					truncated = true
				} else {
					buf.Write(line)
				}
			}
			if err != nil && err != io.EOF {
				return err
			}
			if !isPrefix || err == io.EOF {
				break
			}
		}

		// ReadLine returns an empty line alongside io.EOF once the reader is drained,
		// that is not a line the client actually sent.
		if err == io.EOF && buf.Len() == 0 {
			return nil
		}

		// Copy the line out of the shared buffer since the callback may hold on
		// to it after we've reset the buffer for the next line.
		l := bytes.TrimSuffix(buf.Bytes(), []byte{'\r'})
		c := make([]byte, len(l))
		copy(c, l)
		if !callback(c, truncated) {
			return nil
		}

		if err == io.EOF {
			return nil
		}
	}
}

func FormatBytes[T int | int16 | int32 | int64 | uint | uint16 | uint32 | uint64](b T) string {
	if b < 1024 {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(1024), 0
	for n := b / 1024; n >= 1024; n /= 1024 {
		div *= 1024
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

type AtomicBool struct {
	v  bool
	mu sync.RWMutex
}

func NewAtomicBool(v bool) *AtomicBool {
	return &AtomicBool{v: v}
}

func (ab *AtomicBool) Store(v bool) {
	ab.mu.Lock()
	ab.v = v
	ab.mu.Unlock()
}

// SwapIf stores the value "v" if the current value stored in the AtomicBool is
// the opposite boolean value. If successfully swapped, the response is "true",
// otherwise "false" is returned.
func (ab *AtomicBool) SwapIf(v bool) bool {
	ab.mu.Lock()
	defer ab.mu.Unlock()
	if ab.v != v {
		ab.v = v
		return true
	}
	return false
}

func (ab *AtomicBool) Load() bool {
	ab.mu.RLock()
	defer ab.mu.RUnlock()
	return ab.v
}
