//go:build unix

package netpoll

import (
	"errors"

	"golang.org/x/sys/unix"
)

const readyMask = unix.POLLIN | unix.POLLHUP | unix.POLLERR

// pollIn reports whether fd has input (or a hangup/error) without waiting.
func pollIn(fd int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, err
		}
		if fds[0].Revents&unix.POLLNVAL != 0 {
			return false, unix.EBADF
		}
		return n > 0 && fds[0].Revents&readyMask != 0, nil
	}
}
