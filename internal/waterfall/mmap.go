package waterfall

import "golang.org/x/sys/unix"

func syncMmap(data []byte) error {
	return unix.Msync(data, unix.MS_SYNC)
}

func unmap(data []byte) error {
	return unix.Munmap(data)
}
