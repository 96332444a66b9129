//go:build unix

package fs

import (
	"errors"
	"strconv"

	"golang.org/x/sys/unix"
)

func fileID(path string) (string, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", err
	}
	return strconv.FormatUint(uint64(st.Ino), 16) + strconv.FormatUint(uint64(st.Dev), 16), nil
}

func isCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}
