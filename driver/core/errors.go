package core

import (
	"errors"
)

var (
	ErrOutOfHostMemory   = errors.New("out of host memory")
	ErrOutOfDeviceMemory = errors.New("out of device memory")
	ErrUnknown           = errors.New("unknown")
)
