package system

import (
	"strings"
	"testing"

	. "github.com/franela/goblin"
)

func Test_Utils(t *testing.T) {
	g := Goblin(t)

	g.Describe("ScanReader", func() {
		g.BeforeEach(func() {
			maxBufferSize = 10
		})

		g.After(func() {
			maxBufferSize = MaxLineSize
		})

		g.It("should truncate and return long lines", func() {
			reader := strings.NewReader("hello world this is a long line\nof text that should be truncated\nnot here\nbut definitely on this line")

			var lines []string
			err := ScanReader(reader, func(line []byte) bool {
				lines = append(lines, string(line))
				return true
			})

			g.Assert(err).IsNil()
			g.Assert(lines).Equal([]string{"hello worl", "of text th", "not here", "but defini"})
		})

		g.It("should strip trailing carriage returns", func() {
			reader := strings.NewReader("list\r\nquit\r\n")

			var lines []string
			err := ScanReader(reader, func(line []byte) bool {
				lines = append(lines, string(line))
				return true
			})

			g.Assert(err).IsNil()
			g.Assert(lines).Equal([]string{"list", "quit"})
		})

		g.It("should keep empty lines sent by the client", func() {
			reader := strings.NewReader("list\n\nquit\n")

			var lines []string
			err := ScanReader(reader, func(line []byte) bool {
				lines = append(lines, string(line))
				return true
			})

			g.Assert(err).IsNil()
			g.Assert(lines).Equal([]string{"list", "", "quit"})
		})

		g.It("should stop when the callback returns false", func() {
			reader := strings.NewReader("one\ntwo\nexit\nthree\n")

			var lines []string
			err := ScanReader(reader, func(line []byte) bool {
				if string(line) == "exit" {
					return false
				}
				lines = append(lines, string(line))
				return true
			})

			g.Assert(err).IsNil()
			g.Assert(lines).Equal([]string{"one", "two"})
		})
	})

	g.Describe("ScanLines", func() {
		g.BeforeEach(func() {
			maxBufferSize = 10
		})

		g.After(func() {
			maxBufferSize = MaxLineSize
		})

		g.It("should report which lines were truncated", func() {
			reader := strings.NewReader("short\nthis line is far too long\n0123456789\n")

			var lines []string
			var truncated []bool
			err := ScanLines(reader, func(line []byte, t bool) bool {
				lines = append(lines, string(line))
				truncated = append(truncated, t)
				return true
			})

			g.Assert(err).IsNil()
			g.Assert(lines).Equal([]string{"short", "this line ", "0123456789"})
			g.Assert(truncated).Equal([]bool{false, true, false})
		})
	})

	g.Describe("FormatBytes", func() {
		g.It("should format values using binary units", func() {
			g.Assert(FormatBytes(512)).Equal("512 B")
			g.Assert(FormatBytes(2048)).Equal("2.0 KiB")
			g.Assert(FormatBytes(int64(5 * 1024 * 1024))).Equal("5.0 MiB")
		})
	})

	g.Describe("FirstNotEmpty", func() {
		g.It("should return the first non-empty value", func() {
			g.Assert(FirstNotEmpty("", "", "b", "c")).Equal("b")
			g.Assert(FirstNotEmpty("", "")).Equal("")
		})
	})
}
