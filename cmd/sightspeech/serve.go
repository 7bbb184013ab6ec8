package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/sightspeech/internal/cadence"
	"github.com/jackzampolin/sightspeech/internal/capture"
	"github.com/jackzampolin/sightspeech/internal/capture/camera"
	"github.com/jackzampolin/sightspeech/internal/config"
	"github.com/jackzampolin/sightspeech/internal/focus"
	"github.com/jackzampolin/sightspeech/internal/home"
	"github.com/jackzampolin/sightspeech/internal/lexicon"
	"github.com/jackzampolin/sightspeech/internal/metrics"
	"github.com/jackzampolin/sightspeech/internal/ocr"
	"github.com/jackzampolin/sightspeech/internal/ocr/tesseract"
	"github.com/jackzampolin/sightspeech/internal/pipeline"
	"github.com/jackzampolin/sightspeech/internal/remote"
	"github.com/jackzampolin/sightspeech/internal/server"
	"github.com/jackzampolin/sightspeech/internal/server/endpoints"
	"github.com/jackzampolin/sightspeech/internal/speech"
	"github.com/jackzampolin/sightspeech/internal/state"
	"github.com/jackzampolin/sightspeech/internal/stream"
	"github.com/jackzampolin/sightspeech/internal/svcctx"
)

var (
	serveHost     string
	servePort     string
	serveLogLevel string
	serveEnvFile  string
	serveFrames   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the camera loop and the HTTP server",
	Long: `Start the frame loop and the SightSpeech HTTP server.

The frame loop reads the camera, runs local OCR on a fixed frame budget
and publishes the ordered, corrected text. Commands sent to POST /data
are acted on by the loop: c (capture), d (describe), n (next), p (prev).

The server provides:
  - /data, /data/words, /data/sentences, /data/focus
  - /video_feed  - live MJPEG preview
  - /api/extract - structured extraction of an uploaded image
  - /speech      - audio for the focused text
  - /health, /ready, /status, /metrics

Examples:
  sightspeech serve                          # Webcam 0 on 127.0.0.1:5000
  sightspeech serve --port 8080              # Custom port
  sightspeech serve --frames ./saved-frames  # Replay a directory of frames`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		// .env is optional
		if err := godotenv.Load(serveEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", serveEnvFile, err)
		}

		logger, err := newLogger(serveLogLevel)
		if err != nil {
			return err
		}

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		mgr, err := config.NewManager(cfgFile, h.Path())
		if err != nil {
			return err
		}
		mgr.SetLogger(logger)
		cfg := mgr.Get()
		if f := mgr.ConfigFileUsed(); f != "" {
			logger.Info("config loaded", "file", f)
		}
		if serveFrames != "" {
			cfg.Camera.Source = "dir"
			cfg.Camera.Path = serveFrames
		}

		m := metrics.New()
		store := state.New()
		cad := cadence.New(cfg.Cadence.Controller())

		corrector := lexicon.NewCorrector(lexicon.Config{
			DictionaryPath:   h.ResolveDataFile(cfg.Lexicon.DictionaryPath),
			MaxEditDistance:  cfg.Lexicon.MaxEditDistance,
			MaxSegmentLength: cfg.Lexicon.MaxSegmentLength,
			Logger:           logger,
		})
		if cfg.Lexicon.Watch && !corrector.Degraded() {
			go func() {
				if err := corrector.Watch(ctx); err != nil {
					logger.Warn("dictionary watch stopped", "error", err)
				}
			}()
		}

		engine := newEngine(cfg.OCR, logger)
		if closer, ok := engine.(interface{ Close() error }); ok {
			defer closer.Close()
		}

		var speechClient *speech.Client
		if cfg.Speech.Enabled {
			speechClient = speech.New(speech.Config{
				APIKey: cfg.Speech.ResolvedAPIKey(),
				Model:  cfg.Speech.Model,
				Voice:  cfg.Speech.Voice,
				Logger: logger,
			})
		}

		// Scene descriptions are kept here for the reader page, never in the store.
		announcer := speech.NewAnnouncer(speechClient, logger)

		extractor, dispatcher, err := newRemote(cfg.Remote, store, announcer, m, logger)
		if err != nil {
			return err
		}
		if dispatcher != nil {
			go dispatcher.Start(ctx)
		}

		source, err := newSource(cfg.Camera, logger)
		if err != nil {
			return err
		}
		defer source.Close()

		pcfg := pipeline.Config{
			Source:    source,
			Engine:    engine,
			Cadence:   cad,
			Layout:    cfg.Layout.Options(),
			Corrector: corrector,
			Navigator: focus.NewNavigator(),
			Store:     store,
			Metrics:   m,
			Logger:    logger,
		}
		if dispatcher != nil {
			pcfg.Remote = dispatcher
		}
		loop, err := pipeline.New(pcfg)
		if err != nil {
			return err
		}

		// Cadence settings apply to the running loop.
		mgr.OnChange(func(c *config.Config) {
			cad.Reconfigure(c.Cadence.Controller())
			logger.Info("cadence reconfigured", "skip_interval", c.Cadence.SkipInterval, "target_width", c.Cadence.TargetWidth)
		})
		mgr.WatchConfig()

		host, port := cfg.Server.Host, cfg.Server.Port
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv, err := server.New(server.Config{
			Host: host,
			Port: port,
			Services: &svcctx.Services{
				Store:         store,
				Cadence:       cad,
				Corrector:     corrector,
				Extractor:     extractor,
				Dispatcher:    dispatcher,
				Speech:        speechClient,
				Announcer:     announcer,
				Metrics:       m,
				ConfigManager: mgr,
				Logger:        logger,
				Home:          h,
			},
			Endpoints: endpoints.Config{
				VideoFeed: stream.New(stream.Config{
					Store:       store,
					FPS:         cfg.Stream.FPS,
					MaxWidth:    cfg.Stream.MaxWidth,
					JPEGQuality: cfg.Stream.JPEGQuality,
					Metrics:     m,
					Logger:      logger,
				}),
			},
			Logger: logger,
		})
		if err != nil {
			return err
		}

		loopErr := make(chan error, 1)
		go func() {
			err := loop.Run(ctx)
			if err != nil {
				logger.Error("frame loop stopped", "error", err)
			}
			loopErr <- err
			// A dead source ends the process.
			cancel()
		}()

		// Start server (blocks until shutdown)
		srvErr := srv.Start(ctx)
		cancel()
		// The source is closed on return, so wait for the loop to leave Read.
		if err := <-loopErr; err != nil {
			return err
		}
		return srvErr
	},
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}

// newEngine returns the configured OCR engine. An engine that fails to
// start is replaced by ocr.Unavailable so the loop keeps serving frames.
func newEngine(cfg config.OCRConfig, logger *slog.Logger) ocr.Engine {
	switch strings.ToLower(cfg.Engine) {
	case "none", "":
		logger.Info("local OCR disabled")
		return ocr.Unavailable{Reason: errors.New("disabled by configuration")}
	case "tesseract":
		engine, err := tesseract.New(tesseract.Config{
			Languages:     cfg.Languages,
			MinConfidence: cfg.MinConfidence,
		})
		if err != nil {
			logger.Error("OCR engine unavailable", "engine", cfg.Engine, "error", err)
			return ocr.Unavailable{Reason: err}
		}
		logger.Info("OCR engine ready", "engine", engine.Name(), "languages", cfg.Languages)
		return engine
	default:
		logger.Error("unknown OCR engine", "engine", cfg.Engine)
		return ocr.Unavailable{Reason: fmt.Errorf("unknown engine %q", cfg.Engine)}
	}
}

// newRemote wires the extraction client, the extractor and its dispatcher.
// All three are nil when remote extraction is disabled.
func newRemote(cfg config.RemoteConfig, store *state.Store, announcer *speech.Announcer, m *metrics.Metrics, logger *slog.Logger) (*remote.Extractor, *remote.Dispatcher, error) {
	if !cfg.Enabled {
		logger.Info("remote extraction disabled")
		return nil, nil, nil
	}

	codecCfg := cfg.CodecConfig()
	if codecCfg.APIKey == "" {
		logger.Warn("remote API key is empty; requests will be rejected", "provider", cfg.Provider)
	}
	codec, err := remote.NewCodec(cfg.Provider, codecCfg)
	if err != nil {
		return nil, nil, err
	}
	client, err := remote.NewClient(remote.Config{
		Codec:       codec,
		Policy:      cfg.Policy(),
		Timeout:     cfg.Timeout(),
		JPEGQuality: cfg.JPEGQuality,
		Limiter:     remote.NewRateLimiter(cfg.RequestsPerMinute),
		Metrics:     m,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, err
	}

	ecfg := remote.ExtractorConfig{
		Client:            client,
		Store:             store,
		CaptureRequest:    cfg.StructuredRequest,
		DescribeDirective: cfg.DescribeDirective,
		Announce:          announcer.Announce,
		Logger:            logger,
	}
	extractor, err := remote.NewExtractor(ecfg)
	if err != nil {
		return nil, nil, err
	}

	dispatcher, err := remote.NewDispatcher(remote.DispatcherConfig{
		Runner:  extractor,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("remote extraction ready", "provider", client.Provider())
	return extractor, dispatcher, nil
}

// newSource opens the webcam or a frame directory.
func newSource(cfg config.CameraConfig, logger *slog.Logger) (capture.Source, error) {
	switch strings.ToLower(cfg.Source) {
	case "dir":
		return capture.NewDirSource(capture.DirConfig{
			Path:     cfg.Path,
			Interval: time.Duration(cfg.IntervalMS) * time.Millisecond,
			Loop:     cfg.Loop,
			Logger:   logger,
		})
	case "camera", "":
		return camera.Open(camera.Config{
			Device: cfg.Device,
			Width:  cfg.Width,
			Height: cfg.Height,
			Logger: logger,
		})
	default:
		return nil, fmt.Errorf("unknown camera source %q (expected camera or dir)", cfg.Source)
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to (overrides server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "5000", "Port to listen on (overrides server.port)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	serveCmd.Flags().StringVar(&serveEnvFile, "env-file", ".env", "Environment file to load if present")
	serveCmd.Flags().StringVar(&serveFrames, "frames", "", "Replay frames from a directory instead of the camera")

	rootCmd.AddCommand(serveCmd)
}
