// Package logging provides structured logging using uber/zap.
//
// Two output modes:
//   - Production: JSON lines for machine parsing
//   - Development: colored console output
//
// Library packages (cache, client, onboarding) accept an optional
// *zap.Logger and fall back to zap.NewNop, so embedding the SDK never
// writes output unless the host asks for it.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	if err != nil {
//		return err
//	}
//	log := logger.Named("session")
//	log.Info("flow presented", zap.String("placement", "home"))
//	log.Debug("cache write failed", zap.Error(err))
package logging
