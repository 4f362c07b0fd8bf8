// Package stream delivers assembled frames to physical receivers at a fixed
// cadence, wire-encoded as IDN realtime channel messages over UDP. Each
// engine owns one socket and one background goroutine; multiple engines run
// concurrently, one per physical target.
package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"laserd/internal/idn"
	"laserd/internal/laser"
	"laserd/internal/platform/metrics"
)

// configResendInterval bounds how long a receiver that missed the channel
// configuration stays out of sync: at least one packet in any window of this
// length carries the configuration sub-block.
const configResendInterval = 200 * time.Millisecond

// stopTimeout bounds the wait for the loop goroutine on Stop.
const stopTimeout = 2 * time.Second

var (
	// ErrAlreadyRunning is returned when Start is called on a running engine.
	ErrAlreadyRunning = errors.New("stream: engine already running")
)

// FrameProvider returns the frame to transmit this tick, or ok=false when
// there is nothing to draw. It is called from the engine's goroutine and
// must not perform blocking I/O.
type FrameProvider func() (laser.Frame, bool)

// Config describes one streaming target.
type Config struct {
	Name        string
	Host        string
	Port        int // 0 means idn.DefaultPort
	ClientGroup byte
	Channel     idn.ChannelConfig
	FPS         int // 0 means 60
	Provider    FrameProvider
}

// Stats is a snapshot of streaming counters.
type Stats struct {
	FramesSent    uint64
	LastFrameTime time.Time
	ActualFPS     float64
}

// Engine streams frames to one receiver on its own goroutine. Create one
// per physical target; Start and Stop bound the socket lifetime.
type Engine struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics
	seq     atomic.Uint32

	mu         sync.Mutex
	running    bool
	conn       *net.UDPConn
	stop       chan struct{}
	done       chan struct{}
	epoch      time.Time
	lastConfig time.Time

	statsMu sync.Mutex
	stats   Stats
}

// New returns a stopped engine for the given target. Metrics may be nil.
func New(cfg Config, log *slog.Logger, m *metrics.Metrics) *Engine {
	if cfg.Port == 0 {
		cfg.Port = idn.DefaultPort
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	return &Engine{cfg: cfg, log: log, metrics: m}
}

// Name returns the configured target name.
func (e *Engine) Name() string {
	return e.cfg.Name
}

// Running reports whether the engine's loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Stats returns a snapshot of the streaming counters.
func (e *Engine) Stats() Stats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

// Start opens the UDP socket, sets the protocol time zero, resets stats, and
// launches the streaming loop. Starting a running engine and socket failures
// are fatal and leave any existing run untouched.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return ErrAlreadyRunning
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port)))
	if err != nil {
		return fmt.Errorf("stream: resolve %s:%d: %w", e.cfg.Host, e.cfg.Port, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("stream: open socket: %w", err)
	}

	e.conn = conn
	e.running = true
	e.epoch = time.Now()
	e.lastConfig = time.Time{}
	e.stop = make(chan struct{})
	e.done = make(chan struct{})

	e.statsMu.Lock()
	e.stats = Stats{}
	e.statsMu.Unlock()

	go e.loop(e.conn, e.stop, e.done)

	e.log.Info("stream started",
		slog.String("target", e.cfg.Name),
		slog.String("addr", addr.String()),
		slog.Int("fps", e.cfg.FPS),
		slog.Int("channel", int(e.cfg.Channel.ChannelID)))
	return nil
}

// Stop flips the running flag, waits a bounded time for the loop to exit,
// sends a best-effort close-channel message, and closes the socket. Stopping
// a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	conn, stop, done := e.conn, e.stop, e.done
	e.conn = nil
	e.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-time.After(stopTimeout):
		e.log.Warn("stream loop did not exit in time", slog.String("target", e.cfg.Name))
	}

	closeMsg := idn.EncodeCloseMessage(e.cfg.Channel, e.timestampUs(time.Now()))
	pkt := idn.Packet(e.header(idn.CmdClose), closeMsg)
	if _, err := conn.Write(pkt); err != nil {
		e.log.Debug("close message send failed", slog.String("target", e.cfg.Name), slog.String("error", err.Error()))
	}
	if err := conn.Close(); err != nil {
		e.log.Debug("socket close failed", slog.String("target", e.cfg.Name), slog.String("error", err.Error()))
	}

	e.log.Info("stream stopped", slog.String("target", e.cfg.Name))
}

func (e *Engine) loop(conn *net.UDPConn, stop, done chan struct{}) {
	defer close(done)

	interval := time.Second / time.Duration(e.cfg.FPS)
	var lastSent time.Time

	for {
		select {
		case <-stop:
			return
		default:
		}

		iterStart := time.Now()
		e.iterate(conn, iterStart, &lastSent)

		// Never catch up by sending multiple frames; a slow iteration just
		// starts the next one immediately.
		sleep := interval - time.Since(iterStart)
		if sleep <= 0 {
			continue
		}
		select {
		case <-stop:
			return
		case <-time.After(sleep):
		}
	}
}

// iterate sends one frame. All failures are non-fatal: they are logged and
// the loop proceeds on schedule, since the protocol tolerates loss.
func (e *Engine) iterate(conn *net.UDPConn, now time.Time, lastSent *time.Time) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("stream iteration panic",
				slog.String("target", e.cfg.Name),
				slog.Any("panic", r))
		}
	}()

	frame, ok := e.cfg.Provider()
	if !ok {
		frame = laser.Frame{}
	}

	includeConfig := now.Sub(e.lastConfig) >= configResendInterval
	if includeConfig {
		// Refresh before encoding so timing jitter cannot double-include.
		e.lastConfig = now
	}

	msg, err := idn.EncodeFrameMessage(e.cfg.Channel, e.timestampUs(now), idn.FrameDurationUs(e.cfg.FPS), frame.Points, includeConfig)
	if err != nil {
		e.log.Warn("frame encode failed",
			slog.String("target", e.cfg.Name),
			slog.String("error", err.Error()))
		return
	}

	pkt := idn.Packet(e.header(idn.CmdMessage), msg)
	if _, err := conn.Write(pkt); err != nil {
		e.log.Warn("udp send failed",
			slog.String("target", e.cfg.Name),
			slog.String("error", err.Error()))
		if e.metrics != nil {
			e.metrics.IncSendErrors()
		}
		return
	}

	if e.metrics != nil {
		e.metrics.IncFramesSent()
		e.metrics.AddPacketBytes(len(pkt))
	}

	e.statsMu.Lock()
	e.stats.FramesSent++
	e.stats.LastFrameTime = now
	if !lastSent.IsZero() {
		if d := now.Sub(*lastSent); d > 0 {
			e.stats.ActualFPS = float64(time.Second) / float64(d)
		}
	}
	e.statsMu.Unlock()
	*lastSent = now

	if e.metrics != nil {
		e.metrics.SetActualFPS(e.cfg.Name, e.Stats().ActualFPS)
	}
}

func (e *Engine) header(command byte) idn.Header {
	return idn.Header{
		Command:     command,
		ClientGroup: e.cfg.ClientGroup,
		Sequence:    uint16(e.seq.Add(1)),
	}
}

func (e *Engine) timestampUs(t time.Time) uint32 {
	return uint32(t.Sub(e.epoch).Microseconds())
}
