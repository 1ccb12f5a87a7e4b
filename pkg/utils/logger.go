package utils

import "go.uber.org/zap"

// NewLogger builds the feedbackd logger. Debug selects the console encoder at debug level,
// otherwise JSON at info level. Every entry carries the service name and build version.
// Output goes to stderr unless outputPaths are given.
func NewLogger(debug bool, service, version string, outputPaths ...string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	if len(outputPaths) > 0 {
		cfg.OutputPaths = outputPaths
	}
	cfg.InitialFields = map[string]interface{}{
		"service": service,
		"version": version,
	}
	return cfg.Build()
}
