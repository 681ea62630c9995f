//go:build linux

package itc

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// eventfdChannel wakes a poller with a single eventfd, counter mode so
// repeated Wake calls before the next Drain coalesce into one readiness
// edge rather than backing up.
type eventfdChannel struct {
	fd int
}

func newChannel() (Channel, error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		return nil, err
	}

	return &eventfdChannel{fd: fd}, nil
}

func (c *eventfdChannel) Wake() error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)

	_, err := unix.Write(c.fd, buf[:])
	if err == unix.EAGAIN {
		// Counter already saturated — the poller is already guaranteed
		// to observe a pending wake, nothing more to do.
		return nil
	}

	return err
}

func (c *eventfdChannel) FD() uintptr {
	return uintptr(c.fd)
}

func (c *eventfdChannel) Drain() {
	var buf [8]byte
	for {
		_, err := unix.Read(c.fd, buf[:])
		if err != nil {
			return
		}
	}
}

func (c *eventfdChannel) Close() error {
	return unix.Close(c.fd)
}
