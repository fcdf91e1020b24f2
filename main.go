package main

import (
	"log/slog"
	"os"
	"sync"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/camcore/cmd"
	"github.com/smazurov/camcore/internal/config"
	"github.com/smazurov/camcore/internal/logging"
	"github.com/smazurov/camcore/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"camcore.toml"`

	// Capture settings
	CaptureDevice       string `help:"V4L2 device path or /dev/v4l/by-id name" short:"d" default:"/dev/video11" toml:"capture.device" env:"CAPTURE_DEVICE"`
	CaptureWidth        int    `help:"Capture width in pixels" default:"1056" toml:"capture.width" env:"CAPTURE_WIDTH"`
	CaptureHeight       int    `help:"Capture height in pixels" default:"784" toml:"capture.height" env:"CAPTURE_HEIGHT"`
	CaptureBuffers      int    `help:"Number of MMAP buffers to request" default:"4" toml:"capture.buffers" env:"CAPTURE_BUFFERS"`
	CaptureStrictFormat bool   `help:"Reject formats the driver adjusted" default:"true" toml:"capture.strict_format" env:"CAPTURE_STRICT_FORMAT"`
	CaptureInference    bool   `help:"Produce centered square crops for inference" default:"false" toml:"capture.inference" env:"CAPTURE_INFERENCE"`

	// Server settings
	ServerAddr        string `help:"HTTP listen address, empty disables the API" short:"p" default:":8090" toml:"server.addr" env:"SERVER_ADDR"`
	ServerJPEGQuality int    `help:"JPEG quality of snapshots" default:"85" toml:"server.jpeg_quality" env:"SERVER_JPEG_QUALITY"`

	// Auth settings
	AuthUsername string `help:"Basic auth username, empty disables auth" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture string `help:"Capture session logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingDevices string `help:"Device discovery logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingSystemd string `help:"Service manager notification logging level" default:"info" toml:"logging.systemd" env:"LOGGING_SYSTEMD"`
}

func loggingConfig(opts *Options) logging.Config {
	return logging.Config{
		Level:  opts.LoggingLevel,
		Format: opts.LoggingFormat,
		Modules: map[string]string{
			"capture": opts.LoggingCapture,
			"devices": opts.LoggingDevices,
			"api":     opts.LoggingAPI,
			"systemd": opts.LoggingSystemd,
		},
	}
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}
		logging.Initialize(loggingConfig(opts))
		logger := logging.GetLogger("main")

		var (
			mu       sync.Mutex
			svc      *service
			stopping bool
		)

		hooks.OnStart(func() {
			info := version.Get()
			logger.Info("Starting camcore", "version", info.Version, "commit", info.GitCommit, "platform", info.Platform)

			s, err := newService(opts, cli.Root(), logger)
			if err != nil {
				logger.Error("Failed to set up capture service", "error", err)
				os.Exit(1)
			}

			mu.Lock()
			if stopping {
				mu.Unlock()
				return
			}
			svc = s
			mu.Unlock()

			runErr := s.run()
			s.shutdown()
			if runErr != nil {
				logger.Error("Capture service stopped on error", "error", runErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			mu.Lock()
			stopping = true
			s := svc
			mu.Unlock()

			logger.Info("Shutting down")
			if s != nil {
				s.shutdown()
			}
		})
	})

	root := cli.Root()
	root.Use = "camcore"
	root.Short = "Capture NV12 frames from a V4L2 multi-planar device"
	root.Version = version.Get().Version

	root.AddCommand(cmd.CreateDevicesCmd())
	root.AddCommand(cmd.CreateFormatsCmd())

	cli.Run()
}
