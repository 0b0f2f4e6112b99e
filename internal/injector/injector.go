//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"
)

func InitializeCore(ctx context.Context, path ConfigPath) (*Core, error) {
	wire.Build(CoreSet)
	return nil, nil
}

func InitializeApp(ctx context.Context, path ConfigPath) (*App, error) {
	wire.Build(CoreSet, ProvideServer, wire.Struct(new(App), "*"))
	return nil, nil
}
