package core

import (
	"errors"
)

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrResourceNotReady = errors.New("resource not ready")
	ErrNoUsableQuality  = errors.New("no declared quality present in preference list")
	ErrNoUsableFile     = errors.New("no usable file for requested detail range")
	ErrUnknownFormat    = errors.New("unknown payload format")
)
