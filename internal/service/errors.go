package service

import "errors"

var (
	ErrExportNoCatalogue = errors.New("load holds data before exporting")
	ErrExportEmpty       = errors.New("no boulders saved to export")

	ErrAuthDisabled      = errors.New("authentication is not enabled")
	ErrInvalidPassphrase = errors.New("invalid passphrase")
)
