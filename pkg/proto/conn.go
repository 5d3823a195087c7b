package proto

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ccheck-game/ccheck/pkg/game"
)

// Conn frames protocol messages over one duplex byte stream. Reads block
// until a line arrives or the stream closes (io.EOF, which callers map to
// the sentinel move). Each write emits exactly one line and flushes it
// under a lock, so an emitted move can never interleave with another
// writer or reach the peer truncated.
type Conn struct {
	scanner *bufio.Scanner
	w       *bufio.Writer
	wmu     sync.Mutex
}

func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{
		scanner: bufio.NewScanner(r),
		w:       bufio.NewWriter(w),
	}
}

// ReadMessage returns the next protocol message, skipping blank lines and
// '#'-prefixed diagnostic noise. It returns io.EOF when the peer closes.
func (c *Conn) ReadMessage() (Message, error) {
	for c.scanner.Scan() {
		var line = strings.TrimSpace(c.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return Parse(line)
	}
	if err := c.scanner.Err(); err != nil {
		return Message{}, err
	}
	return Message{}, io.EOF
}

func (c *Conn) WriteRequest() error {
	return c.writeLine("<")
}

func (c *Conn) WriteNotify(side game.Side, text string) error {
	return c.writeLine(fmt.Sprintf(">%v:%v", side, text))
}

func (c *Conn) WriteMove(side game.Side, text string) error {
	return c.writeLine(fmt.Sprintf("%v:%v", side, text))
}

func (c *Conn) WriteAck() error {
	return c.writeLine("ok")
}

func (c *Conn) writeLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if _, err := c.w.WriteString(line + "\n"); err != nil {
		return err
	}
	return c.w.Flush()
}
