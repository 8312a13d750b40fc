package main

import "time"

type Config struct {
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	Host              string        `env:"HOST,default=localhost"`
	Port              int           `env:"PORT,default=8080"`
	InspectorPort     int           `env:"INSPECTOR_PORT,default=8081"`
	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,required=true"`
	LimitMessages     int           `env:"LIMIT_MESSAGES,default=50"`
	TxMaxRetries      int           `env:"TX_MAX_RETRIES,default=5"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}
