// Package logging provides slog loggers with a level per module.
//
// Records go to stdout (text or JSON) when something is attached to it and
// to the systemd journal when journald is reachable, or to both.
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"capture": "debug"},
//	})
//	logger := logging.GetLogger("capture")
//	logger.Info("Streaming started", "width", 1056, "height", 784)
//
// Loggers are created once per module and stay valid across later
// Initialize calls, which only change levels and the output format. A
// module's level can also be changed on its own with SetModuleLevel.
//
// Journal entries carry SYSLOG_IDENTIFIER=camcore and one upper-case field
// per attribute:
//
//	journalctl -t camcore MODULE=capture
//	journalctl -t camcore DEVICE=/dev/video11 -p err
package logging
