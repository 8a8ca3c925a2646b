package bpgsql

import (
	"bufio"
	"os"
	"strings"

	"golang.org/x/xerrors"
)

// The two-character line terminating a copy data stream in either
// direction.
const copySentinel = `\.`

type lineReader interface {
	ReadString(delim byte) (string, error)
}

// copySource returns the line source for copy-in, wrapping the
// configured reader (or stdin) in a buffered reader once so that lines
// buffered across consecutive copies are not lost.
func (cn *Conn) copySource() lineReader {
	if cn.copyInBuf == nil {
		src := cn.cfg.CopyIn
		if src == nil {
			src = os.Stdin
		}
		cn.copyInBuf = bufio.NewReader(src)
	}
	return cn.copyInBuf
}

// handleCopyIn streams lines from the configured source to the server
// until a sentinel line or the source is exhausted.  The last forwarded
// line gets a newline injected if it lacked one, and the sentinel line
// is always sent.
func (cn *Conn) handleCopyIn() {
	src := cn.copySource()
	var lastLine string
	for {
		line, err := src.ReadString('\n')
		if line == "" && err != nil {
			break
		}
		if line == copySentinel+"\n" {
			break
		}
		cn.s.send([]byte(line))
		lastLine = line
		if err != nil {
			break
		}
	}
	if lastLine != "" && !strings.HasSuffix(lastLine, "\n") {
		cn.s.send([]byte("\n"))
	}
	cn.s.send([]byte(copySentinel + "\n"))
}

// handleCopyOut streams newline-terminated lines from the server to the
// configured sink until the sentinel line, which is not forwarded.
func (cn *Conn) handleCopyOut() {
	dst := cn.cfg.CopyOut
	if dst == nil {
		dst = os.Stdout
	}
	for {
		line := cn.s.readUntil('\n')
		if string(line) == copySentinel {
			return
		}
		if _, err := dst.Write(append(line, '\n')); err != nil {
			panic(xerrors.Errorf("bpgsql: writing copy data to sink: %w", err))
		}
	}
}
