// Package frames discovers extracted video frames on disk and decodes them in
// parallel.
//
// Frames follow the layout <root>/<video_id>/frame<N>.png with N starting at
// 1 and contiguous per video. Loader runs a fixed pool of decoding workers
// that hand plain pixel buffers to a single consumer through a bounded
// channel; when the channel is full, workers block, which caps the number of
// decoded frames held in memory at the channel capacity. Each decoded buffer
// carries its source path so the consumer never relies on arrival order.
package frames
