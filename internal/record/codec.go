package record

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers from record.proto.
const (
	imageChannels     protowire.Number = 1
	imageHeight       protowire.Number = 2
	imageWidth        protowire.Number = 3
	imageData         protowire.Number = 4
	imageChannelOrder protowire.Number = 5

	frameImage      protowire.Number = 1
	frameVideoName  protowire.Number = 2
	frameFrameIndex protowire.Number = 3

	labelName protowire.Number = 1
	labelID   protowire.Number = 2

	labeledFrame protowire.Number = 1
	labeledLabel protowire.Number = 2
)

// ErrMalformed reports a value that is not a valid LabeledVideoFrame.
var ErrMalformed = errors.New("malformed frame record")

// Marshal encodes r as a LabeledVideoFrame message.
func Marshal(r FrameRecord) []byte {
	frame := appendFrame(nil, r)
	size := protowire.SizeTag(labeledFrame) + protowire.SizeBytes(len(frame))
	for _, l := range r.Labels {
		size += protowire.SizeTag(labeledLabel) + protowire.SizeBytes(sizeLabel(l))
	}
	b := make([]byte, 0, size)
	b = protowire.AppendTag(b, labeledFrame, protowire.BytesType)
	b = protowire.AppendBytes(b, frame)
	for _, l := range r.Labels {
		b = protowire.AppendTag(b, labeledLabel, protowire.BytesType)
		b = protowire.AppendVarint(b, uint64(sizeLabel(l)))
		b = appendLabel(b, l)
	}
	return b
}

func appendFrame(b []byte, r FrameRecord) []byte {
	image := appendImage(nil, r.Image)
	b = protowire.AppendTag(b, frameImage, protowire.BytesType)
	b = protowire.AppendBytes(b, image)
	if r.VideoID != "" {
		b = protowire.AppendTag(b, frameVideoName, protowire.BytesType)
		b = protowire.AppendString(b, r.VideoID)
	}
	b = appendInt(b, frameFrameIndex, r.FrameIndex)
	return b
}

func appendImage(b []byte, im Image) []byte {
	b = appendInt(b, imageChannels, im.Channels)
	b = appendInt(b, imageHeight, im.Height)
	b = appendInt(b, imageWidth, im.Width)
	if len(im.Data) > 0 {
		b = protowire.AppendTag(b, imageData, protowire.BytesType)
		b = protowire.AppendBytes(b, im.Data)
	}
	if im.ChannelOrder != "" {
		b = protowire.AppendTag(b, imageChannelOrder, protowire.BytesType)
		b = protowire.AppendString(b, im.ChannelOrder)
	}
	return b
}

func appendLabel(b []byte, l Label) []byte {
	if l.Name != "" {
		b = protowire.AppendTag(b, labelName, protowire.BytesType)
		b = protowire.AppendString(b, l.Name)
	}
	return appendInt(b, labelID, l.ID)
}

func sizeLabel(l Label) int {
	n := 0
	if l.Name != "" {
		n += protowire.SizeTag(labelName) + protowire.SizeBytes(len(l.Name))
	}
	if l.ID != 0 {
		n += protowire.SizeTag(labelID) + protowire.SizeVarint(uint64(int64(l.ID)))
	}
	return n
}

// appendInt writes an int32 field, omitting the proto3 default.
func appendInt(b []byte, num protowire.Number, v int) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(int64(int32(v))))
}

// Unmarshal decodes a LabeledVideoFrame message. Unknown fields are skipped.
func Unmarshal(b []byte) (FrameRecord, error) {
	var r FrameRecord
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == labeledFrame && typ == protowire.BytesType:
			return unmarshalFrame(v, &r)
		case num == labeledLabel && typ == protowire.BytesType:
			var l Label
			if err := unmarshalLabel(v, &l); err != nil {
				return err
			}
			r.Labels = append(r.Labels, l)
		}
		return nil
	})
	if err != nil {
		return FrameRecord{}, err
	}
	return r, nil
}

func unmarshalFrame(b []byte, r *FrameRecord) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == frameImage && typ == protowire.BytesType:
			return unmarshalImage(v, &r.Image)
		case num == frameVideoName && typ == protowire.BytesType:
			r.VideoID = string(v)
		case num == frameFrameIndex && typ == protowire.VarintType:
			r.FrameIndex = int(int32(x))
		}
		return nil
	})
}

func unmarshalImage(b []byte, im *Image) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == imageChannels && typ == protowire.VarintType:
			im.Channels = int(int32(x))
		case num == imageHeight && typ == protowire.VarintType:
			im.Height = int(int32(x))
		case num == imageWidth && typ == protowire.VarintType:
			im.Width = int(int32(x))
		case num == imageData && typ == protowire.BytesType:
			im.Data = append([]byte(nil), v...)
		case num == imageChannelOrder && typ == protowire.BytesType:
			im.ChannelOrder = string(v)
		}
		return nil
	})
}

func unmarshalLabel(b []byte, l *Label) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == labelName && typ == protowire.BytesType:
			l.Name = string(v)
		case num == labelID && typ == protowire.VarintType:
			l.ID = int(int32(x))
		}
		return nil
	})
}

// walk visits every field of a message. Length-delimited values arrive in v,
// varints in x; other wire types are skipped.
func walk(b []byte, visit func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]
		switch typ {
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(m))
			}
			if err := visit(num, typ, v, 0); err != nil {
				return err
			}
			b = b[m:]
		case protowire.VarintType:
			x, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(m))
			}
			if err := visit(num, typ, nil, x); err != nil {
				return err
			}
			b = b[m:]
		default:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(m))
			}
			b = b[m:]
		}
	}
	return nil
}
