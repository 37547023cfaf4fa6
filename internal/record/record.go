// Package record defines the labeled frame value written by the records sink
// and its protobuf wire encoding.
package record

import "fmt"

// Image is a decoded frame as a plain byte buffer plus shape metadata. Data
// is laid out as (Channels, Height, Width).
type Image struct {
	Channels     int
	Height       int
	Width        int
	ChannelOrder string
	Data         []byte
}

// Validate checks that Data matches the declared shape.
func (im Image) Validate() error {
	if im.Channels <= 0 || im.Height <= 0 || im.Width <= 0 {
		return fmt.Errorf("image shape (%d, %d, %d) must be positive", im.Channels, im.Height, im.Width)
	}
	if want := im.Channels * im.Height * im.Width; len(im.Data) != want {
		return fmt.Errorf("image data has %d bytes, shape (%d, %d, %d) needs %d", len(im.Data), im.Channels, im.Height, im.Width, want)
	}
	return nil
}

// Label is one active category and its class mapping id.
type Label struct {
	Name string
	ID   int
}

// FrameRecord pairs a decoded frame with the labels active at that frame.
type FrameRecord struct {
	VideoID    string
	FrameIndex int
	Image      Image
	Labels     []Label
}

// Key returns the store key "<video_id>-<frame_index>".
func (r FrameRecord) Key() string {
	return Key(r.VideoID, r.FrameIndex)
}

// Key formats a store key.
func Key(videoID string, frameIndex int) string {
	return fmt.Sprintf("%s-%d", videoID, frameIndex)
}
