//go:build !unix && !windows

package fs

import "github.com/pkg/errors"

func fileID(string) (string, error) {
	return "", errors.New("file ids are not supported on this platform")
}

func isCrossDevice(error) bool {
	return false
}
