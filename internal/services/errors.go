package services

import "errors"

// Service-level sentinel errors
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrEmptyUpload    = errors.New("uploaded file is empty")
	ErrUnreadable     = errors.New("recording could not be read")
	ErrExportFormat   = errors.New("unsupported export format")
	ErrNoFilesToLoad  = errors.New("no files to load")
	ErrAlreadyRunning = errors.New("playback loop already running")
)
