package idn

import (
	"encoding/binary"
	"testing"

	"laserd/internal/laser"
)

func testChannel() ChannelConfig {
	return ChannelConfig{
		ChannelID:   0,
		ServiceMode: ServiceModeGraphicContinuous,
		Position16:  true, // default output format: 16-bit XY, 8-bit RGB
	}
}

func testPoints(n int) []laser.Point {
	pts := make([]laser.Point, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, laser.Point{X: 0.5, Y: -0.5, R: 1, G: 0.5, B: 0})
	}
	return pts
}

func TestSampleSize(t *testing.T) {
	cases := []struct {
		name string
		cfg  ChannelConfig
		want int
	}{
		{"xy16_rgb8", ChannelConfig{Position16: true}, 7},
		{"xy8_rgb8", ChannelConfig{}, 5},
		{"xy16_rgb16", ChannelConfig{Position16: true, Color16: true}, 10},
		{"xy8_rgb16", ChannelConfig{Color16: true}, 8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.SampleSize(); got != tc.want {
				t.Errorf("SampleSize() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestEncodeFrameMessage_sizes(t *testing.T) {
	cfg := testChannel()
	pts := testPoints(10)

	withCfg, err := EncodeFrameMessage(cfg, 0, 16666, pts, true)
	if err != nil {
		t.Fatalf("EncodeFrameMessage: %v", err)
	}
	without, err := EncodeFrameMessage(cfg, 0, 16666, pts, false)
	if err != nil {
		t.Fatalf("EncodeFrameMessage: %v", err)
	}

	// message header + chunk header + samples
	wantWithout := 8 + 4 + 10*cfg.SampleSize()
	if len(without) != wantWithout {
		t.Errorf("without config: %d bytes, want %d", len(without), wantWithout)
	}
	if len(withCfg) <= len(without) {
		t.Errorf("config sub-block missing: %d <= %d bytes", len(withCfg), len(without))
	}

	// totalSize field must match the actual encoding
	for _, msg := range [][]byte{withCfg, without} {
		if got := binary.BigEndian.Uint16(msg[0:2]); int(got) != len(msg) {
			t.Errorf("totalSize = %d, want %d", got, len(msg))
		}
	}
}

func TestEncodeFrameMessage_headerFields(t *testing.T) {
	cfg := testChannel()
	cfg.ChannelID = 5

	msg, err := EncodeFrameMessage(cfg, 123456, 16666, testPoints(1), true)
	if err != nil {
		t.Fatalf("EncodeFrameMessage: %v", err)
	}

	info, err := DecodeChannelMessageInfo(msg)
	if err != nil {
		t.Fatalf("DecodeChannelMessageInfo: %v", err)
	}
	if info.ChannelID != 5 {
		t.Errorf("channel id = %d, want 5", info.ChannelID)
	}
	if info.ChunkType != ChunkTypeFrame {
		t.Errorf("chunk type = %#02x, want %#02x", info.ChunkType, ChunkTypeFrame)
	}
	if info.TimestampUs != 123456 {
		t.Errorf("timestamp = %d, want 123456", info.TimestampUs)
	}
	if !info.ConfigFollows {
		t.Error("config-follows flag should be set")
	}

	msg, err = EncodeFrameMessage(cfg, 0, 16666, testPoints(1), false)
	if err != nil {
		t.Fatalf("EncodeFrameMessage: %v", err)
	}
	info, err = DecodeChannelMessageInfo(msg)
	if err != nil {
		t.Fatalf("DecodeChannelMessageInfo: %v", err)
	}
	if info.ConfigFollows {
		t.Error("config-follows flag should be clear")
	}
}

func TestEncodeFrameMessage_sampleScaling(t *testing.T) {
	cfg := testChannel()
	pts := []laser.Point{{X: 1, Y: -1, R: 1, G: 0, B: 0.5}}

	msg, err := EncodeFrameMessage(cfg, 0, 16666, pts, false)
	if err != nil {
		t.Fatalf("EncodeFrameMessage: %v", err)
	}

	sample := msg[8+4:]
	if x := int16(binary.BigEndian.Uint16(sample[0:2])); x != 32767 {
		t.Errorf("X = %d, want 32767", x)
	}
	if y := int16(binary.BigEndian.Uint16(sample[2:4])); y != -32767 {
		t.Errorf("Y = %d, want -32767", y)
	}
	if r := sample[4]; r != 255 {
		t.Errorf("R = %d, want 255", r)
	}
	if g := sample[5]; g != 0 {
		t.Errorf("G = %d, want 0", g)
	}
	if b := sample[6]; b != 128 {
		t.Errorf("B = %d, want 128", b)
	}
}

func TestEncodeFrameMessage_clampsOutOfRange(t *testing.T) {
	cfg := testChannel()
	pts := []laser.Point{{X: 2, Y: -3, R: 1.5, G: -1, B: 0}}

	msg, err := EncodeFrameMessage(cfg, 0, 16666, pts, false)
	if err != nil {
		t.Fatalf("EncodeFrameMessage: %v", err)
	}

	sample := msg[8+4:]
	if x := int16(binary.BigEndian.Uint16(sample[0:2])); x != 32767 {
		t.Errorf("clamped X = %d, want 32767", x)
	}
	if r := sample[4]; r != 255 {
		t.Errorf("clamped R = %d, want 255", r)
	}
}

func TestEncodeFrameMessage_emptyFrame(t *testing.T) {
	msg, err := EncodeFrameMessage(testChannel(), 0, 16666, nil, false)
	if err != nil {
		t.Fatalf("EncodeFrameMessage: %v", err)
	}
	if len(msg) != 8+4 {
		t.Errorf("empty frame: %d bytes, want %d", len(msg), 8+4)
	}
}

func TestEncodeFrameMessage_overflow(t *testing.T) {
	t.Run("too_many_points", func(t *testing.T) {
		if _, err := EncodeFrameMessage(testChannel(), 0, 16666, testPoints(20000), false); err == nil {
			t.Error("expected error when message exceeds the 16-bit size field")
		}
	})

	t.Run("duration_too_long", func(t *testing.T) {
		if _, err := EncodeFrameMessage(testChannel(), 0, 1<<24, testPoints(1), false); err == nil {
			t.Error("expected error when duration exceeds 24 bits")
		}
	})
}

func TestEncodeCloseMessage(t *testing.T) {
	msg := EncodeCloseMessage(testChannel(), 999)

	info, err := DecodeChannelMessageInfo(msg)
	if err != nil {
		t.Fatalf("DecodeChannelMessageInfo: %v", err)
	}
	if info.ChunkType != ChunkTypeVoid {
		t.Errorf("close chunk type = %#02x, want void", info.ChunkType)
	}
	if !info.ConfigFollows {
		t.Error("close message must carry the configuration sub-block")
	}
	if info.TimestampUs != 999 {
		t.Errorf("timestamp = %d, want 999", info.TimestampUs)
	}
	if int(info.TotalSize) != len(msg) {
		t.Errorf("totalSize = %d, want %d", info.TotalSize, len(msg))
	}
	if flags := msg[9]; flags&cfgFlagClose == 0 {
		t.Errorf("close flag not set in config flags %#02x", flags)
	}
}

func TestFrameDurationUs(t *testing.T) {
	if d := FrameDurationUs(60); d != 16666 {
		t.Errorf("FrameDurationUs(60) = %d, want 16666", d)
	}
	if d := FrameDurationUs(30); d != 33333 {
		t.Errorf("FrameDurationUs(30) = %d, want 33333", d)
	}
}
