// Package logging provides the structured logging sink used across zonerun.
//
// This package implements a logging system built on Go's standard slog package.
// Every call names the subsystem it comes from and the level is always passed
// explicitly, so streaming command output from several containers at once
// never needs to touch a shared verbosity setting.
//
// # Log Levels
//   - **Debug**: executed commands, captured (non-streamed) command output
//   - **Info**: streamed command output, phase progress
//   - **Warn**: notable steps such as bring-up, log collection, teardown
//   - **Error**: per-container failures that do not stop the run
//   - **Critical**: fatal errors, logged right before they are returned
//
// # Usage
//
//	logging.InitForCLI(logging.LevelFromVerbosity(verbose), os.Stderr, scriptLog)
//
//	logging.Info("Install", "packages to install %v", packages)
//	logging.Error("Collect", err, "failed to collect log [%s]", path)
//	logging.Log(logging.LevelInfo, "Execute", "%s", chunk)
//
// The -v count maps onto levels the same way as the command line tools this
// project grew out of: one -v shows errors, each further -v lowers the
// threshold by one level.
//
// Nothing is written until InitForCLI is called, which keeps library code
// silent in tests.
package logging
