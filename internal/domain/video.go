package domain

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// VideoStatus tracks a stored recording through processing.
type VideoStatus string

const (
	VideoStatusCompleted  VideoStatus = "completed"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusProcessed  VideoStatus = "processed"
	VideoStatusFailed     VideoStatus = "failed"
)

// Upload constraints applied by the client before compression and by the
// server on receipt.
const (
	MaxVideoBytes    int64 = 100 * 1024 * 1024
	MinVideoDuration       = 30 * time.Second
	MaxVideoDuration       = 5 * time.Minute

	// LatestUploadTTL is how long a cached latest-upload record stays usable.
	LatestUploadTTL = 23 * time.Hour
)

// Video is an uploaded recording.
type Video struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Filename    string
	StorageKey  string
	PosterKey   string
	ContentType string
	SizeBytes   int64
	Status      VideoStatus
	UploadedAt  time.Time

	// URL is resolved from storage on read and is not persisted.
	URL string
}

// UploadVideoParams carries one received recording.
type UploadVideoParams struct {
	UserID      uuid.UUID
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	// Poster is an optional still image shown in listings.
	Poster io.Reader
}

// Period is a listing window for videos.
type Period string

const (
	PeriodAll       Period = ""
	PeriodToday     Period = "today"
	PeriodYesterday Period = "yesterday"
	PeriodWeek      Period = "week"
)

// Bounds returns the [from, to) interval of p relative to now in now's
// location. PeriodAll returns zero times.
func (p Period) Bounds(now time.Time) (from, to time.Time, ok bool) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch p {
	case PeriodAll:
		return time.Time{}, time.Time{}, true
	case PeriodToday:
		return startOfDay, startOfDay.AddDate(0, 0, 1), true
	case PeriodYesterday:
		return startOfDay.AddDate(0, 0, -1), startOfDay, true
	case PeriodWeek:
		return startOfDay.AddDate(0, 0, -7), startOfDay.AddDate(0, 0, 1), true
	}
	return time.Time{}, time.Time{}, false
}

// CompressionProfile is the target encoding of the client-side transcode.
type CompressionProfile struct {
	Width         int    `mapstructure:"width" toml:"width"`
	Height        int    `mapstructure:"height" toml:"height"`
	VideoBitrate  string `mapstructure:"video_bitrate" toml:"video_bitrate"`
	AudioBitrate  string `mapstructure:"audio_bitrate" toml:"audio_bitrate"`
	AudioChannels int    `mapstructure:"audio_channels" toml:"audio_channels"`
	FrameRate     int    `mapstructure:"frame_rate" toml:"frame_rate"`
	Container     string `mapstructure:"container" toml:"container"`
}

// DefaultCompressionProfile is the low-bandwidth profile used for uploads.
func DefaultCompressionProfile() CompressionProfile {
	return CompressionProfile{
		Width:         160,
		Height:        120,
		VideoBitrate:  "200k",
		AudioBitrate:  "64k",
		AudioChannels: 1,
		FrameRate:     10,
		Container:     "mp4",
	}
}
