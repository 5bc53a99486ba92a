//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/tracksync/tracksync/internal/config"
	"github.com/tracksync/tracksync/internal/core/observability/log"
	"github.com/tracksync/tracksync/internal/server"
)

func ProvideLogger() *log.Logger {
	wire.Build(log.Provide)
	return log.New(log.LevelDebug)
}

func ProvideServer(cfg config.Config) (*server.Server, error) {
	wire.Build(log.Provide, wire.Bind(new(log.Log), new(*log.Logger)), server.NewServer)
	return nil, nil
}
