//go:build wireinject
// +build wireinject

package di

import (
	"meetroom/config"
	"meetroom/infras/jwt"
	"meetroom/infras/kafka"
	"meetroom/infras/otel"
	"meetroom/infras/postgres"
	"meetroom/infras/redis"
	"meetroom/infras/s3"
	"meetroom/permissions"
	"meetroom/shared/cache"
	"meetroom/shared/metrics"
	"meetroom/transport/http"
	"meetroom/transport/http/middleware"
	"meetroom/transport/http/router"

	bookingEvent "meetroom/internal/domains/booking/event"
	bookingRepository "meetroom/internal/domains/booking/repository"
	bookingService "meetroom/internal/domains/booking/service"
	bookingHandler "meetroom/internal/handlers/booking"

	roomRepository "meetroom/internal/domains/room/repository"
	roomService "meetroom/internal/domains/room/service"
	roomHandler "meetroom/internal/handlers/room"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	s3.New,
	metrics.NewFromConfig,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	http.NewProbes,
)

var roomDomain = wire.NewSet(
	roomRepository.New,
	roomService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingEvent.NewPublisher,
	bookingService.New,
)

var domains = wire.NewSet(
	roomDomain,
	bookingDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	roomHandler.New,
	bookingHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}
