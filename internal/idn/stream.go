package idn

import (
	"encoding/binary"
	"fmt"
	"math"

	"laserd/internal/laser"
)

// Service modes for laser projector graphic channels.
const (
	ServiceModeGraphicContinuous = 0x02
	ServiceModeGraphicDiscrete   = 0x03
)

// Chunk types carried in the low byte of the content ID.
const (
	ChunkTypeVoid  = 0x00
	ChunkTypeFrame = 0x03 // laser projector frame, single chunk
)

// Content ID bits of the channel message header.
const (
	contentChannelMsg   = 0x8000 // channel message flag
	contentConfigFollow = 0x4000 // channel configuration sub-block follows
	contentChannelMask  = 0x3F00
	contentChannelShift = 8
	contentChunkMask    = 0x00FF
)

// Channel configuration flags.
const (
	cfgFlagRouting = 0x01
	cfgFlagClose   = 0x02
)

// Sample descriptor tag words. Color tags encode the channel wavelength in
// nanometers; the precision tag widens the preceding field to 16 bits.
const (
	tagNop       = 0x0000
	tagPrecision = 0x4010
	tagX         = 0x4200
	tagY         = 0x4210
	tagRed       = 0x527E // 638 nm
	tagGreen     = 0x5214 // 532 nm
	tagBlue      = 0x51CC // 460 nm
)

const (
	channelMessageHeaderSize = 8
	channelConfigHeaderSize  = 4
	sampleChunkHeaderSize    = 4
	maxDurationUs            = 1<<24 - 1
)

// ChannelConfig fixes the wire format of one stream channel: its routing
// identifiers and the integer widths of the transmitted sample fields.
type ChannelConfig struct {
	ChannelID   uint8 // 0-63
	ServiceID   uint8
	ServiceMode uint8
	Color16     bool // 16-bit color channels; default is 8-bit
	Position16  bool // 16-bit position channels; default for laser output
}

// descriptors returns the sample descriptor tag words for the configured
// bit depths, padded to an even word count.
func (c ChannelConfig) descriptors() []uint16 {
	tags := make([]uint16, 0, 12)
	for _, pos := range []uint16{tagX, tagY} {
		tags = append(tags, pos)
		if c.Position16 {
			tags = append(tags, tagPrecision)
		}
	}
	for _, color := range []uint16{tagRed, tagGreen, tagBlue} {
		tags = append(tags, color)
		if c.Color16 {
			tags = append(tags, tagPrecision)
		}
	}
	if len(tags)%2 != 0 {
		tags = append(tags, tagNop)
	}
	return tags
}

// SampleSize returns the encoded size of one point in bytes.
func (c ChannelConfig) SampleSize() int {
	pos, col := 1, 1
	if c.Position16 {
		pos = 2
	}
	if c.Color16 {
		col = 2
	}
	return 2*pos + 3*col
}

// configSize returns the size of the channel configuration sub-block.
func (c ChannelConfig) configSize() int {
	return channelConfigHeaderSize + 2*len(c.descriptors())
}

// FrameDurationUs converts a frame rate to a per-frame duration in microseconds.
func FrameDurationUs(fps int) uint32 {
	return uint32(1000000 / fps)
}

// EncodeFrameMessage encodes one frame as a Stream channel message: message
// header, optional channel configuration sub-block, sample chunk header, and
// the points scaled to the configured integer ranges. The result is the
// payload of a realtime channel-message Hello packet. timestampUs is relative
// to the stream's protocol epoch.
func EncodeFrameMessage(cfg ChannelConfig, timestampUs, durationUs uint32, points []laser.Point, includeConfig bool) ([]byte, error) {
	if durationUs > maxDurationUs {
		return nil, fmt.Errorf("idn: frame duration %dus exceeds 24-bit field", durationUs)
	}

	total := channelMessageHeaderSize + sampleChunkHeaderSize + len(points)*cfg.SampleSize()
	if includeConfig {
		total += cfg.configSize()
	}
	if total > math.MaxUint16 {
		return nil, fmt.Errorf("idn: frame message of %d bytes exceeds 16-bit size field", total)
	}

	buf := make([]byte, 0, total)
	buf = appendChannelMessageHeader(buf, cfg, uint16(total), ChunkTypeFrame, timestampUs, includeConfig)
	if includeConfig {
		buf = appendChannelConfig(buf, cfg, cfgFlagRouting)
	}

	// Sample chunk header: flags byte plus 24-bit frame duration.
	buf = binary.BigEndian.AppendUint32(buf, durationUs&maxDurationUs)

	for _, p := range points {
		buf = cfg.appendSample(buf, p.Clamp())
	}
	return buf, nil
}

// EncodeCloseMessage encodes the channel message that signals orderly
// shutdown of a channel: a configuration sub-block flagged close with a void
// chunk and no points.
func EncodeCloseMessage(cfg ChannelConfig, timestampUs uint32) []byte {
	total := channelMessageHeaderSize + channelConfigHeaderSize
	buf := make([]byte, 0, total)
	buf = appendChannelMessageHeader(buf, cfg, uint16(total), ChunkTypeVoid, timestampUs, true)
	// Close flag with no descriptors.
	return append(buf, 0, cfgFlagClose, cfg.ServiceID, cfg.ServiceMode)
}

func appendChannelMessageHeader(buf []byte, cfg ChannelConfig, totalSize uint16, chunkType byte, timestampUs uint32, configFollows bool) []byte {
	contentID := uint16(contentChannelMsg) |
		uint16(cfg.ChannelID)<<contentChannelShift&contentChannelMask |
		uint16(chunkType)
	if configFollows {
		contentID |= contentConfigFollow
	}
	buf = binary.BigEndian.AppendUint16(buf, totalSize)
	buf = binary.BigEndian.AppendUint16(buf, contentID)
	return binary.BigEndian.AppendUint32(buf, timestampUs)
}

func appendChannelConfig(buf []byte, cfg ChannelConfig, flags byte) []byte {
	tags := cfg.descriptors()
	buf = append(buf, byte(len(tags)/2), flags, cfg.ServiceID, cfg.ServiceMode)
	for _, tag := range tags {
		buf = binary.BigEndian.AppendUint16(buf, tag)
	}
	return buf
}

// appendSample encodes one clamped point in descriptor order: X, Y, R, G, B.
func (c ChannelConfig) appendSample(buf []byte, p laser.Point) []byte {
	for _, v := range []float64{p.X, p.Y} {
		if c.Position16 {
			buf = binary.BigEndian.AppendUint16(buf, uint16(int16(math.Round(v*32767))))
		} else {
			buf = append(buf, byte(int8(math.Round(v*127))))
		}
	}
	for _, v := range []float64{p.R, p.G, p.B} {
		if c.Color16 {
			buf = binary.BigEndian.AppendUint16(buf, uint16(math.Round(v*65535)))
		} else {
			buf = append(buf, byte(math.Round(v*255)))
		}
	}
	return buf
}

// DecodeChannelMessageInfo extracts the routing fields from an encoded
// channel message payload. Used by tests and diagnostic tooling; units do
// the full decode on the receiving side.
type ChannelMessageInfo struct {
	TotalSize     uint16
	ChannelID     uint8
	ChunkType     byte
	TimestampUs   uint32
	ConfigFollows bool
}

// DecodeChannelMessageInfo parses the fixed channel message header.
func DecodeChannelMessageInfo(data []byte) (ChannelMessageInfo, error) {
	if len(data) < channelMessageHeaderSize {
		return ChannelMessageInfo{}, fmt.Errorf("idn: channel message too short: %d bytes", len(data))
	}
	contentID := binary.BigEndian.Uint16(data[2:4])
	if contentID&contentChannelMsg == 0 {
		return ChannelMessageInfo{}, fmt.Errorf("idn: content id %#04x is not a channel message", contentID)
	}
	return ChannelMessageInfo{
		TotalSize:     binary.BigEndian.Uint16(data[0:2]),
		ChannelID:     uint8(contentID & contentChannelMask >> contentChannelShift),
		ChunkType:     byte(contentID & contentChunkMask),
		TimestampUs:   binary.BigEndian.Uint32(data[4:8]),
		ConfigFollows: contentID&contentConfigFollow != 0,
	}, nil
}
