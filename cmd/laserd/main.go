package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"laserd/internal/control"
	"laserd/internal/idn"
	"laserd/internal/laser"
	"laserd/internal/platform/config"
	"laserd/internal/platform/logger"
	"laserd/internal/platform/metrics"
	"laserd/internal/render"
	"laserd/internal/state"
	"laserd/internal/stream"
	"laserd/internal/timing"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	bpm := config.GetEnvFloat("BPM", 120)
	resyncRate := config.GetEnvFloat("RESYNC_RATE_BEATS", 4)
	projectorsFile := config.GetEnv("PROJECTORS_FILE", "projectors.yaml")
	demo := config.GetEnvBool("DEMO", false)

	log := logger.New(logLevel, logFormat)

	projectors, err := config.LoadProjectors(projectorsFile)
	if err != nil {
		log.Error("projector config error", "error", err)
		os.Exit(1)
	}

	met := metrics.New()
	store := state.NewStore(bpm)
	store.SetZoneGroups(projectors.ZoneGroups)
	presets := render.DefaultRegistry()
	effects := render.NewEngine()
	renderer := render.NewRenderer(presets, effects, log, met)

	targets := make([]control.Target, 0, len(projectors.Targets))
	for _, t := range projectors.Targets {
		acc := timing.NewAccumulator(bpm, resyncRate)
		asm := render.NewAssembler(t.Name, store, renderer, effects, acc, log, met)

		eng := stream.New(stream.Config{
			Name: t.Name,
			Host: t.Host,
			Port: t.Port,
			Channel: idn.ChannelConfig{
				ChannelID:   uint8(t.Channel),
				ServiceMode: idn.ServiceModeGraphicContinuous,
				Color16:     t.ColorBits == 16,
				Position16:  t.PositionBits == 16,
			},
			FPS: t.FPS,
			Provider: func() (laser.Frame, bool) {
				frame, _, ok := asm.Assemble(time.Now())
				return frame, ok
			},
		}, log, met)

		if err := eng.Start(); err != nil {
			log.Error("stream start failed", "target", t.Name, "error", err)
			os.Exit(1)
		}
		targets = append(targets, control.Target{Name: t.Name, Engine: eng, Accumulator: acc})
	}

	if demo {
		installDemoShow(store, targets)
		log.Info("demo show installed")
	}

	h := control.NewHandler(store, targets, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() {
			n := 0
			for _, t := range targets {
				if t.Engine.Running() {
					n++
				}
			}
			met.SetRunningEngines(n)
		}).ServeHTTP(w, req)
	})
	r.Get("/status", h.Status)
	r.Route("/transport", func(r chi.Router) {
		r.Post("/start", h.StartTransport)
		r.Post("/stop", h.StopTransport)
		r.Put("/bpm", h.SetBPM)
		r.Post("/resync", h.Resync)
	})

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("laserd starting",
		"port", port,
		"targets", len(targets),
		"bpm", bpm,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping streams")

	for _, t := range targets {
		t.Engine.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("laserd stopped")
}

// installDemoShow assigns a beat-animated cue chain to every target and
// starts the transport, so a bare daemon produces visible output.
func installDemoShow(store *state.Store, targets []control.Target) {
	chain := laser.CueChain{
		Items: []laser.CueItem{
			laser.Group{
				Enabled: true,
				Items: []laser.CueItem{
					laser.Preset{
						PresetID: "circle",
						Enabled:  true,
						Params:   map[string]float64{"size": 0.6, "speed": 0.2, "g": 0.2, "b": 0.1},
						Effects: laser.EffectChain{
							Active: true,
							Effects: []laser.EffectInstance{{
								EffectID: "brightness",
								Enabled:  true,
								Params:   map[string]float64{"level": 0.6},
								Mods: map[string]laser.Modulator{
									"level": {Shape: laser.ModSine, FreqBeats: 0.5, Depth: 0.4},
								},
							}},
						},
					},
					laser.Preset{
						PresetID: "wave",
						Enabled:  true,
						Params:   map[string]float64{"size": 0.8, "r": 0.1, "g": 0.4},
					},
				},
				Effects: laser.EffectChain{
					Active: true,
					Effects: []laser.EffectInstance{{
						EffectID: "rotate",
						Enabled:  true,
						Params:   map[string]float64{"speed": 0.05},
					}},
				},
			},
		},
	}

	for _, t := range targets {
		store.SetChain(t.Name, chain)
	}
	store.Play(time.Now())
}
