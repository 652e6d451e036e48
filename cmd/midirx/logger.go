package main

import "go.uber.org/zap"

var decoderLog = zap.NewNop()
var pumpLog = zap.NewNop()

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func enableDebugLogging(l *zap.Logger) {
	decoderLog = l.Named("decoder")
	pumpLog = l.Named("serial")
}
