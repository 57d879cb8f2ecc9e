package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/vcinteract/internal/artifact"
	"github.com/rbright/vcinteract/internal/asr"
	"github.com/rbright/vcinteract/internal/capture"
	"github.com/rbright/vcinteract/internal/config"
	"github.com/rbright/vcinteract/internal/indicator"
	"github.com/rbright/vcinteract/internal/ipc"
	"github.com/rbright/vcinteract/internal/lifecycle"
	"github.com/rbright/vcinteract/internal/metrics"
	"github.com/rbright/vcinteract/internal/playback"
	"github.com/rbright/vcinteract/internal/recognition"
	"github.com/rbright/vcinteract/internal/riva"
	"github.com/rbright/vcinteract/internal/session"
	"github.com/rbright/vcinteract/internal/submission"
)

const (
	loopDepth       = 64
	poolDepth       = 32
	synthEventDepth = 128
)

// runtime is the wired object graph behind `serve`.
type runtime struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	store     *artifact.Store
	loop      *lifecycle.Loop
	pools     []*lifecycle.Pool
	synth     *playback.CommandSynth
	player    *playback.Player
	indicator *indicator.Desktop
	orch      *session.Orchestrator
}

func newRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{logger: logger, metrics: metrics.New()}
	rt.store = artifact.NewStore(logger, rt.metrics)
	rt.indicator = indicator.NewDesktop(cfg.Indicator, logger)

	device := capture.NewCommandDevice(logger, cfg.Capture.PhotoCmd.Argv, cfg.Capture.VideoCmd.Argv, cfg.Capture.MediaDir)
	captures := capture.NewCoordinator(logger, device, capture.FileOpener{}, rt.store, capture.Options{
		CacheDir:   cfg.Capture.CacheDir,
		BufferSize: cfg.Capture.BufferSize,
		VideoLimit: config.Millis(cfg.Capture.VideoLimitMS),
	})

	recognizer := newRecognitionCoordinator(ctx, cfg.Recognition, logger, rt.metrics, rt.indicator)

	client := submission.NewHTTPClient(transportConfig(cfg.Server), logger)
	pipeline, err := submission.New(logger, client, submission.Options{
		BaseURL:  cfg.Server.BaseURL,
		VideoFPS: cfg.Server.VideoFPS,
		Observer: rt.metrics,
	})
	if err != nil {
		return nil, err
	}

	rt.synth = playback.NewCommandSynth(logger, cfg.Speech.Cmd.Argv, synthEventDepth)
	rt.player = playback.NewPlayer(logger, rt.synth, cfg.Speech.ChunkSize, rt.metrics)

	rt.loop = lifecycle.NewLoop(loopDepth)
	files := lifecycle.NewPool(ctx, logger, "files", 2, poolDepth)
	logic := lifecycle.NewPool(ctx, logger, "logic", 2, poolDepth)
	capturePool := lifecycle.NewPool(ctx, logger, "capture", 1, 4)
	rt.pools = []*lifecycle.Pool{capturePool, logic, files}

	control := lifecycle.NewControl(func(enabled bool) {
		logger.Debug("input control changed", "enabled", enabled)
	})
	manager := lifecycle.NewManager(lifecycle.Deps{
		Logger:   logger,
		Loop:     rt.loop,
		Control:  control,
		Files:    files,
		Releaser: rt.store,
		Notifier: rt.indicator,
		Observer: rt.metrics,
	})

	rt.orch = session.New(session.Deps{
		Logger:      logger,
		Capture:     captures,
		Recognizer:  recognizer,
		Submitter:   pipeline,
		Speaker:     rt.player,
		Artifacts:   rt.store,
		Indicator:   rt.indicator,
		Manager:     manager,
		Control:     control,
		CapturePool: capturePool,
		LogicPool:   logic,
	})
	return rt, nil
}

func newRecognitionCoordinator(
	ctx context.Context,
	cfg config.RecognitionConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
	ind *indicator.Desktop,
) *recognition.Coordinator {
	rec := asr.RivaRecognizer{
		Conn:         riva.Config{Endpoint: cfg.RivaGRPC},
		LanguageCode: cfg.LanguageCode,
		Model:        cfg.Model,
		Punctuation:  cfg.AutomaticPunctuation,
		Retries:      1,
		Logger:       logger,
	}
	mic := asr.MicConfig{Threshold: cfg.SilenceThreshold, MaxListen: config.Millis(cfg.MaxListenMS)}

	primary := asr.NewMicEngine(logger, asr.PulseOpener(logger, cfg.Input, cfg.FallbackInput), rec, mic)

	var fallback recognition.Engine
	if len(cfg.FallbackCmd.Argv) > 0 {
		fallback = asr.NewCommandEngine(logger, cfg.FallbackCmd.Argv)
	} else {
		fallback = asr.NewMicEngine(logger, asr.PulseOpener(logger, cfg.FallbackInput, "default"), rec, mic)
	}

	return recognition.NewCoordinator(logger, primary, fallback, recognition.Options{
		Primary:  listenParams(cfg.Primary, true),
		Fallback: listenParams(cfg.Fallback, false),
		OnReady:  func(recognition.Path) { ind.ShowListening(ctx) },
		Observer: m,
	})
}

func listenParams(w config.ListenWindow, continuous bool) recognition.Params {
	return recognition.Params{
		MinInput:        config.Millis(w.MinMS),
		Silence:         config.Millis(w.SilenceMS),
		MaxAlternatives: w.MaxAlternatives,
		Continuous:      continuous,
	}
}

func transportConfig(cfg config.ServerConfig) submission.TransportConfig {
	return submission.TransportConfig{
		CallTimeout:              config.Millis(cfg.CallTimeoutMS),
		ConnectTimeout:           config.Millis(cfg.ConnectTimeoutMS),
		ReadTimeout:              config.Millis(cfg.ReadTimeoutMS),
		WriteTimeout:             config.Millis(cfg.WriteTimeoutMS),
		MaxIdleConns:             cfg.MaxIdleConns,
		IdleTimeout:              config.Millis(cfg.IdleTimeoutMS),
		RetryOnConnectionFailure: cfg.RetryOnConnectionFailure,
	}
}

// Close stops workers, then discards any temp media still held.
func (rt *runtime) Close() {
	for _, pool := range rt.pools {
		if err := pool.Close(); err != nil {
			rt.logger.Warn("worker pool shutdown failed", "error", err.Error())
		}
	}
	if rt.synth != nil {
		_ = rt.synth.Close()
	}
	rt.store.Clear()
	hideCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rt.indicator.Hide(hideCtx)
}

func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	rt, err := newRuntime(serveCtx, cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	g, gctx := errgroup.WithContext(serveCtx)
	g.Go(func() error { return rt.loop.Run(gctx) })
	g.Go(func() error {
		rt.player.Watch(gctx)
		return nil
	})
	if addr := strings.TrimSpace(cfg.Metrics.Listen); addr != "" {
		g.Go(func() error {
			if err := rt.metrics.Serve(gctx, addr, logger); err != nil {
				return fmt.Errorf("metrics listener: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error { return ipc.Serve(gctx, listener, rt.orch, logger) })

	logger.Info("server started", "socket", socketPath, "server_url", cfg.Server.BaseURL)
	fmt.Fprintf(r.Stdout, "%s serving on %s\n", binaryName, socketPath)

	err = g.Wait()
	cancel()
	rt.Close()
	if err != nil {
		logger.Error("server stopped", "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	logger.Info("server stopped")
	return 0
}
