package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"

	"meetroom/infras/otel"
	"meetroom/infras/postgres"
	"meetroom/internal/domains/booking/model"
	gDto "meetroom/shared/dto"
	"meetroom/shared/logger"
	gRepo "meetroom/shared/repository"

	"github.com/jmoiron/sqlx"
)

const queryRoomLock = "SELECT pg_advisory_xact_lock(hashtext($1))"

type Booking interface {
	Insert(ctx context.Context, model model.Booking) error
	InsertTx(ctx context.Context, sqltx *sqlx.Tx, model model.Booking) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (model.Booking, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	GetAllTx(ctx context.Context, sqltx *sqlx.Tx, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Booking, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	UpdateTx(ctx context.Context, sqltx *sqlx.Tx, req map[string]any, filter gDto.FilterGroup) error
	Delete(ctx context.Context, filter gDto.FilterGroup) error
	DeleteTx(ctx context.Context, sqltx *sqlx.Tx, filter gDto.FilterGroup) error
	// WithRoomLock runs fn in a write transaction holding the room's advisory lock,
	// committing only when fn returns nil.
	WithRoomLock(ctx context.Context, roomID string, fn func(ctx context.Context, sqltx *sqlx.Tx) error) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Booking]
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Booking](model.EntityName, model.TableName, model.FieldID, db, otel),
	}
}

// WithRoomLock serializes writers per room with a transaction-scoped advisory lock, released
// on commit or rollback.
func (repo *repositoryImpl) WithRoomLock(ctx context.Context, roomID string, fn func(ctx context.Context, sqltx *sqlx.Tx) error) error {
	return repo.WithTx(ctx, func(ctx context.Context, sqltx *sqlx.Tx) error {
		if _, err := sqltx.ExecContext(ctx, queryRoomLock, roomID); err != nil {
			logger.ErrorWithStack(err)

			return fmt.Errorf("failed to acquire lock for room %s: %w", roomID, err)
		}

		return fn(ctx, sqltx)
	})
}
