package main

import (
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lgimportados/pricewatch/app"
	"github.com/lgimportados/pricewatch/config"
	"github.com/lgimportados/pricewatch/lib/watcher"
)

func NewLogger() (*zap.Logger, error) {
	switch os.Getenv("ENVIRONMENT") {
	default:
		return zap.NewDevelopment()

	case "production":
		logCfg := zap.NewProductionConfig()
		logCfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			t = t.UTC()
			zapcore.ISO8601TimeEncoder(t, enc)
		}
		return logCfg.Build()
	}
}

func main() {
	godotenv.Load()

	fx.New(
		fx.Provide(NewLogger),
		fx.Provide(config.NewConfig),

		fx.Provide(app.NewDatabase),
		fx.Provide(app.NewTransport),

		fx.Provide(watcher.NewRegistry),
		fx.Provide(watcher.NewMetrics),
		fx.Provide(watcher.NewFetcher),
		fx.Provide(watcher.NewExtractor),
		fx.Provide(watcher.NewWatcher),

		fx.Provide(app.NewService),
		fx.Provide(app.NewAPI),

		fx.Invoke(func(*watcher.Watcher) {}),
		fx.Invoke(func(*http.Server) {}),
	).Run()
}
