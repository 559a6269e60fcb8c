package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New monta o logger padrão dos binários. Em produção o sampling fica
// desligado: o loop de rodadas loga em volume e sampling esconderia
// justamente as rodadas com problema.
func New(serviceName string, env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}

	// serviço e env sempre como campos padrão
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build(
		zap.Fields(
			zap.String("service", serviceName),
			zap.String("env", env),
		),
	)
}
