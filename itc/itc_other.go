//go:build !linux

package itc

import (
	"os"
	"syscall"
)

// pipeChannel is the portable fallback: a non-blocking self-pipe, one
// byte per Wake, drained in bulk.
type pipeChannel struct {
	r, w *os.File
}

func newChannel() (Channel, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	if err := syscall.SetNonblock(int(r.Fd()), true); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}

	if err := syscall.SetNonblock(int(w.Fd()), true); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}

	return &pipeChannel{r: r, w: w}, nil
}

func (c *pipeChannel) Wake() error {
	_, err := c.w.Write([]byte{0})
	if pe, ok := err.(*os.PathError); ok && pe.Err == syscall.EAGAIN {
		// Pipe buffer already holds an unconsumed wake byte.
		return nil
	}

	return err
}

func (c *pipeChannel) FD() uintptr {
	return c.r.Fd()
}

func (c *pipeChannel) Drain() {
	buf := make([]byte, 64)
	for {
		_, err := c.r.Read(buf)
		if err != nil {
			return
		}
	}
}

func (c *pipeChannel) Close() error {
	werr := c.w.Close()
	rerr := c.r.Close()
	if werr != nil {
		return werr
	}

	return rerr
}
