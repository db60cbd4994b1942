// Package uploader is the client side of video intake: it validates a local
// recording, transcodes it to the low-bandwidth profile, uploads it and
// remembers the result for the signed-in user.
package uploader

import "errors"

// Validation failures are terminal; retrying the same file cannot succeed.
var (
	ErrFileTooLarge  = errors.New("file size exceeds 100MB limit")
	ErrVideoTooShort = errors.New("video must be at least 30 seconds long")
	ErrVideoTooLong  = errors.New("video must be at most 5 minutes long")
)

var (
	ErrProbeFailed       = errors.New("could not read video duration")
	ErrCompressionFailed = errors.New("video compression failed")
	ErrUploadFailed      = errors.New("upload failed")
)
