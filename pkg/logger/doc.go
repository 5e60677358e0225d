// Package logger builds context-aware slog loggers.
//
// New creates a *slog.Logger configured through Option functions: output
// format, minimum level, static attributes and ContextExtractor callbacks that
// pull request-scoped values such as the acting user or request id out of a
// context.Context each time a record is handled.
//
// Attribute helpers in attr.go (ClubID, ActorID, Status, Transition and
// friends) keep key names consistent between the lifecycle engine, the HTTP
// API and the periodic sweep.
//
// Usage:
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "clubkit"),
//		logger.WithLevelName(cfg.LogLevel),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "trial extended",
//		logger.ClubID(clubID),
//		logger.Transition("grace", "trialing"),
//	)
package logger
