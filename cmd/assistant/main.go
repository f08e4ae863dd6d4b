// Command assistant runs the Coordinator against a live camera/microphone
// pair and the remote generative model's live session endpoint.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/assistant-core/internal/config"
	ilog "github.com/teslashibe/assistant-core/internal/log"
	"github.com/teslashibe/assistant-core/pkg/capture"
	"github.com/teslashibe/assistant-core/pkg/coordinator"
	"github.com/teslashibe/assistant-core/pkg/metrics"
	"github.com/teslashibe/assistant-core/pkg/player"
	"github.com/teslashibe/assistant-core/pkg/session"
	"github.com/teslashibe/assistant-core/pkg/vad"
)

func main() {
	modeFlag := flag.String("mode", "social", "interaction mode: social, mirror, scene")
	debugFlag := flag.Bool("debug", false, "enable verbose debug logging")
	cameraBackend := flag.String("camera", "mock", "camera backend: mock, gocv")
	micBackend := flag.String("mic", "mock", "microphone backend: mock, exec")
	playerBackend := flag.String("player", "mock", "player backend: mock, exec")
	flag.Parse()

	if *debugFlag {
		ilog.Init("debug")
	} else {
		ilog.Init("info")
	}
	logger := ilog.L()

	mode, err := parseMode(*modeFlag)
	if err != nil {
		log.Fatalf("assistant: %v", err)
	}

	co, err := build(logger, *cameraBackend, *micBackend, *playerBackend)
	if err != nil {
		log.Fatalf("assistant: build failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := co.Start(ctx, mode); err != nil {
		log.Fatalf("assistant: start failed: %v", err)
	}
	logger.Info("coordinator started", "mode", mode.String())

	co.OnStateChange(func(s coordinator.State) {
		logger.Info("state transition", "state", s.String())
	})

	<-ctx.Done()
	logger.Info("shutting down")
	if err := co.Stop(); err != nil {
		logger.Warn("stop returned error", "error", err)
	}
}

func parseMode(s string) (coordinator.Mode, error) {
	switch s {
	case "social":
		return coordinator.ModeSocial, nil
	case "mirror":
		return coordinator.ModeMirror, nil
	case "scene":
		return coordinator.ModeScene, nil
	default:
		return 0, &unknownModeError{s}
	}
}

type unknownModeError struct{ value string }

func (e *unknownModeError) Error() string {
	return "unknown mode " + e.value + " (want social, mirror, or scene)"
}

// build wires every component per SPEC_FULL.md §4's component list, reading
// tunables from the environment the way cmd/eva's parseFlags layers env
// vars over flag defaults.
func build(logger *slog.Logger, cameraBackend, micBackend, playerBackend string) (*coordinator.Coordinator, error) {
	sessCfg := session.DefaultConfig().Apply(
		session.WithCredential(os.Getenv("GOOGLE_API_KEY")),
		session.WithModel(config.String("ASSISTANT_MODEL", "models/gemini-2.0-flash-live-001")),
		session.WithVoice(config.String("ASSISTANT_VOICE", "Puck")),
		session.WithLogger(logger),
	)
	sess := session.New(sessCfg)

	vadCfg := vad.DefaultConfig().
		WithModelPath(config.String("ASSISTANT_VAD_MODEL_PATH", "models/silero_vad.onnx"))
	vadEngine, err := vad.New(vadCfg, logger)
	if err != nil {
		return nil, err
	}

	playerCfg := player.DefaultConfig()
	var sink player.Sink
	switch playerBackend {
	case "exec":
		playerCfg.Backend = player.BackendExec
		sink = player.NewExecSink(playerCfg, logger)
	default:
		playerCfg.Backend = player.BackendMock
		sink = player.NewMockSink(playerCfg, logger)
	}
	pl := player.New(playerCfg, sink, logger)

	var cam capture.CameraSource
	switch cameraBackend {
	case "gocv":
		camCfg := capture.DefaultGoCVCameraConfig()
		camCfg.DeviceIndex = config.Int("ASSISTANT_CAMERA_DEVICE", camCfg.DeviceIndex)
		cam = capture.NewGoCVCamera(camCfg, logger)
	default:
		cam = capture.NewMockCamera(capture.DefaultMockCameraConfig(), logger)
	}
	var mic capture.MicSource
	switch micBackend {
	case "exec":
		mic = capture.NewExecMic(capture.DefaultExecMicConfig(), logger)
	default:
		mic = capture.NewMockMic(capture.DefaultMockMicConfig(), logger)
	}

	mc := metrics.New(config.Int("ASSISTANT_METRICS_HISTORY", 100))
	mc.OnUpdate(func(t metrics.Turn) {
		logger.Debug("turn metrics", "latency", t.FormatLatency())
	})

	return coordinator.New(coordinator.Deps{
		Session: sess,
		VAD:     vadEngine,
		Player:  pl,
		Camera:  cam,
		Mic:     mic,
		Metrics: mc,
		Logger:  logger,
	}), nil
}
