package annotation

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidInterval reports an annotation whose start is not strictly
	// before its end.
	ErrInvalidInterval = errors.New("invalid annotation interval")
	// ErrMalformedLine reports an annotation line that does not split into
	// exactly (video_id, start, end).
	ErrMalformedLine = errors.New("malformed annotation line")
)

// Annotation is one labeled time interval within a video.
type Annotation struct {
	VideoID      string
	Category     string
	StartSeconds float64
	EndSeconds   float64
	StartFrame   int
	EndFrame     int
	FrameRate    float64
}

// New validates the interval and derives StartFrame and EndFrame from the
// frame rate.
func New(videoID, category string, startSeconds, endSeconds, frameRate float64) (Annotation, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return Annotation{}, errors.New("annotation video id is empty")
	}
	if frameRate <= 0 || math.IsNaN(frameRate) || math.IsInf(frameRate, 0) {
		return Annotation{}, fmt.Errorf("annotation %s: frame rate must be positive, got %v", videoID, frameRate)
	}
	if math.IsNaN(startSeconds) || math.IsNaN(endSeconds) || !(startSeconds < endSeconds) {
		return Annotation{}, fmt.Errorf("%w: %s [%v, %v]", ErrInvalidInterval, videoID, startSeconds, endSeconds)
	}
	return Annotation{
		VideoID:      videoID,
		Category:     NormalizeCategory(category),
		StartSeconds: startSeconds,
		EndSeconds:   endSeconds,
		StartFrame:   int(math.Floor(startSeconds * frameRate)),
		EndFrame:     int(math.Ceil(endSeconds * frameRate)),
		FrameRate:    frameRate,
	}, nil
}

// Covers reports whether t lies strictly inside the interval. Frames that
// fall exactly on the start or end timestamp are not covered.
func (a Annotation) Covers(t float64) bool {
	return a.StartSeconds < t && t < a.EndSeconds
}

// QueryTime converts a 1-indexed frame number into seconds at fps. Frame 1
// maps to time zero.
func QueryTime(frameIndex int, fps float64) float64 {
	return float64(frameIndex-1) / fps
}

// ResampledFrameOffset computes the frame offset a frame would have if the
// video were resampled from original to sampled frames per second.
//
//	ResampledFrameOffset(3, 10, 1) == 0
//	ResampledFrameOffset(3, 5, 1)  == 1
//	ResampledFrameOffset(3, 3, 1)  == 1
func ResampledFrameOffset(offset int, original, sampled float64) int {
	return int(math.Round(float64(offset) * sampled / original))
}

func (a Annotation) resampled(target float64) Annotation {
	if a.FrameRate == target {
		return a
	}
	out := a
	out.StartFrame = ResampledFrameOffset(a.StartFrame, a.FrameRate, target)
	out.EndFrame = ResampledFrameOffset(a.EndFrame, a.FrameRate, target)
	out.FrameRate = target
	return out
}
