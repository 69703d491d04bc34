package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"meetroom/infras/otel"
	"meetroom/infras/postgres"
	"meetroom/shared/constant"
	"meetroom/shared/dto"
	"meetroom/shared/logger"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// ErrRequiredFilter guards Exist and Delete against running without a WHERE clause.
var ErrRequiredFilter = errors.New("required filter")

type column struct {
	name  string
	table string
	alias string
}

func (c column) selectExpr() string {
	switch {
	case c.table == "":
		return c.name
	case c.alias != "":
		return fmt.Sprintf("%s.%s AS %s", c.table, c.name, c.alias)
	default:
		return c.table + "." + c.name
	}
}

// runner is satisfied by both *sqlx.DB and *sqlx.Tx.
type runner interface {
	PrepareNamedContext(ctx context.Context, query string) (*sqlx.NamedStmt, error)
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

// Repository is the generic CRUD layer shared by every table. Statements are assembled
// with squirrel and executed as sqlx named queries, so filter values never reach the SQL
// text.
type Repository[T any] struct {
	db            *postgres.Connection
	otel          otel.Otel
	table         string
	entity        string
	primaryColumn string
	columns       []column
	join          string
	insertColumns []string
}

type joiner interface {
	GetJoinQuery() string
}

func NewRepository[T any](entityName, tableName, primaryColumn string, dbConnection *postgres.Connection, otl otel.Otel) Repository[T] {
	var zero T

	columns, insertColumns := getColumns(tableName, reflect.TypeOf(zero))

	join := ""
	if j, ok := any(zero).(joiner); ok {
		join = j.GetJoinQuery()
	}

	return Repository[T]{
		db:            dbConnection,
		otel:          otl,
		table:         tableName,
		entity:        entityName,
		primaryColumn: primaryColumn,
		columns:       columns,
		join:          join,
		insertColumns: insertColumns,
	}
}

func (repo *Repository[T]) scope(ctx context.Context, op string) (context.Context, otel.Scope) {
	return repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, fmt.Sprintf("%s.%s.%s", constant.OtelRepositoryScopeName, repo.entity, op))
}

func (repo *Repository[T]) fail(scope otel.Scope, action string, err error) error {
	logger.ErrorWithStack(err)
	scope.TraceError(err)

	return fmt.Errorf("failed to %s (%s): %w", action, repo.entity, err)
}

// WithTx runs fn inside a write transaction and commits when fn returns nil.
func (repo *Repository[T]) WithTx(ctx context.Context, fn func(ctx context.Context, sqltx *sqlx.Tx) error) (err error) {
	ctx, scope := repo.scope(ctx, "WithTx")
	defer scope.End()
	defer scope.TraceIfError(&err)

	sqltx, err := repo.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		return repo.fail(scope, "begin transaction", err)
	}

	defer func() {
		if err == nil {
			return
		}

		if rbErr := sqltx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Error().Err(rbErr).Str("entity", repo.entity).Msg("failed to rollback transaction")
		}
	}()

	if err = fn(ctx, sqltx); err != nil {
		return err
	}

	if err = sqltx.Commit(); err != nil {
		return repo.fail(scope, "commit transaction", err)
	}

	return nil
}

func (repo *Repository[T]) Insert(ctx context.Context, model T) error {
	return repo.insert(ctx, repo.db.Write, model)
}

func (repo *Repository[T]) InsertTx(ctx context.Context, sqltx *sqlx.Tx, model T) error {
	return repo.insert(ctx, sqltx, model)
}

func (repo *Repository[T]) insert(ctx context.Context, run runner, model T) error {
	ctx, scope := repo.scope(ctx, "insert")
	defer scope.End()

	query, err := repo.insertQuery()
	if err != nil {
		return repo.fail(scope, "build insert", err)
	}

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	if _, err = run.NamedExecContext(ctx, query, model); err != nil {
		return repo.fail(scope, "insert data", err)
	}

	return nil
}

func (repo *Repository[T]) Exist(ctx context.Context, filter dto.FilterGroup) (bool, error) {
	ctx, scope := repo.scope(ctx, "Exist")
	defer scope.End()

	where, args := repo.BuildWhereClause(ctx, filter)
	if where == "" {
		return false, ErrRequiredFilter
	}

	query, _, err := sq.Select("1").From(repo.table).Where(where).
		Prefix("SELECT EXISTS(").Suffix(")").ToSql()
	if err != nil {
		return false, repo.fail(scope, "build exist", err)
	}

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var exist bool
	if err = repo.fetch(ctx, repo.db.Read, query, func(stmt *sqlx.NamedStmt) error {
		return stmt.GetContext(ctx, &exist, args)
	}); err != nil {
		return false, repo.fail(scope, "check exist data", err)
	}

	return exist, nil
}

// Get returns the zero value, not an error, when nothing matches.
func (repo *Repository[T]) Get(ctx context.Context, filter dto.FilterGroup, columns ...string) (T, error) {
	return repo.get(ctx, repo.db.Read, filter, columns...)
}

func (repo *Repository[T]) GetTx(ctx context.Context, sqltx *sqlx.Tx, filter dto.FilterGroup, columns ...string) (T, error) {
	return repo.get(ctx, sqltx, filter, columns...)
}

func (repo *Repository[T]) get(ctx context.Context, run runner, filter dto.FilterGroup, columns ...string) (T, error) {
	ctx, scope := repo.scope(ctx, "get")
	defer scope.End()

	var model T

	where, args := repo.BuildWhereClause(ctx, filter)

	query, err := repo.selectQuery(where, dto.QueryParams{Limit: 1}, columns...)
	if err != nil {
		return model, repo.fail(scope, "build select", err)
	}

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	err = repo.fetch(ctx, run, query, func(stmt *sqlx.NamedStmt) error {
		return stmt.GetContext(ctx, &model, args)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return model, nil
	}

	if err != nil {
		return model, repo.fail(scope, "get data", err)
	}

	return model, nil
}

func (repo *Repository[T]) GetAll(ctx context.Context, params dto.QueryParams, filter dto.FilterGroup, columns ...string) ([]T, error) {
	return repo.getAll(ctx, repo.db.Read, params, filter, columns...)
}

// GetAllTx reads inside sqltx so rows locked or written by the transaction are visible.
func (repo *Repository[T]) GetAllTx(ctx context.Context, sqltx *sqlx.Tx, params dto.QueryParams, filter dto.FilterGroup, columns ...string) ([]T, error) {
	return repo.getAll(ctx, sqltx, params, filter, columns...)
}

func (repo *Repository[T]) getAll(ctx context.Context, run runner, params dto.QueryParams, filter dto.FilterGroup, columns ...string) ([]T, error) {
	ctx, scope := repo.scope(ctx, "getAll")
	defer scope.End()

	models := []T{}

	where, args := repo.BuildWhereClause(ctx, filter)

	query, err := repo.selectQuery(where, params, columns...)
	if err != nil {
		return models, repo.fail(scope, "build select", err)
	}

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	if err = repo.fetch(ctx, run, query, func(stmt *sqlx.NamedStmt) error {
		return stmt.SelectContext(ctx, &models, args)
	}); err != nil {
		return models, repo.fail(scope, "get all data", err)
	}

	return models, nil
}

func (repo *Repository[T]) Count(ctx context.Context, filter dto.FilterGroup) (int, error) {
	ctx, scope := repo.scope(ctx, "Count")
	defer scope.End()

	where, args := repo.BuildWhereClause(ctx, filter)

	builder := sq.Select(fmt.Sprintf("COUNT(%s.%s)", repo.table, repo.primaryColumn)).From(repo.table)
	if repo.join != "" {
		builder = builder.JoinClause(repo.join)
	}

	query, _, err := builder.Where(where).ToSql()
	if err != nil {
		return 0, repo.fail(scope, "build count", err)
	}

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var count int
	if err = repo.fetch(ctx, repo.db.Read, query, func(stmt *sqlx.NamedStmt) error {
		return stmt.GetContext(ctx, &count, args)
	}); err != nil {
		return 0, repo.fail(scope, "count data", err)
	}

	return count, nil
}

func (repo *Repository[T]) Update(ctx context.Context, mod map[string]any, filter dto.FilterGroup) error {
	return repo.update(ctx, repo.db.Write, mod, filter)
}

func (repo *Repository[T]) UpdateTx(ctx context.Context, sqltx *sqlx.Tx, mod map[string]any, filter dto.FilterGroup) error {
	return repo.update(ctx, sqltx, mod, filter)
}

func (repo *Repository[T]) update(ctx context.Context, run runner, mod map[string]any, filter dto.FilterGroup) error {
	ctx, scope := repo.scope(ctx, "update")
	defer scope.End()

	where, args := repo.BuildWhereClause(ctx, filter)
	if where == "" {
		return ErrRequiredFilter
	}

	query, err := repo.updateQuery(mod, where)
	if err != nil {
		return repo.fail(scope, "build update", err)
	}

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)
	maps.Copy(args, mod)

	if _, err = run.NamedExecContext(ctx, query, args); err != nil {
		return repo.fail(scope, "update data", err)
	}

	return nil
}

func (repo *Repository[T]) Delete(ctx context.Context, filter dto.FilterGroup) error {
	return repo.delete(ctx, repo.db.Write, filter)
}

func (repo *Repository[T]) DeleteTx(ctx context.Context, sqltx *sqlx.Tx, filter dto.FilterGroup) error {
	return repo.delete(ctx, sqltx, filter)
}

func (repo *Repository[T]) delete(ctx context.Context, run runner, filter dto.FilterGroup) error {
	ctx, scope := repo.scope(ctx, "delete")
	defer scope.End()

	where, args := repo.BuildWhereClause(ctx, filter)
	if where == "" {
		return ErrRequiredFilter
	}

	query, _, err := sq.Delete(repo.table).Where(where).ToSql()
	if err != nil {
		return repo.fail(scope, "build delete", err)
	}

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	if _, err = run.NamedExecContext(ctx, query, args); err != nil {
		return repo.fail(scope, "delete data", err)
	}

	return nil
}

// BuildWhereClause renders filter for a squirrel Where call. The clause is empty when the
// filter has no predicates.
func (repo *Repository[T]) BuildWhereClause(_ context.Context, filter dto.FilterGroup) (string, map[string]any) {
	where, args := filter.GetWhereClause()
	if where == "" {
		return "", map[string]any{}
	}

	return where, args
}

func (repo *Repository[T]) fetch(ctx context.Context, run runner, query string, do func(stmt *sqlx.NamedStmt) error) error {
	stmt, err := run.PrepareNamedContext(ctx, query)
	if err != nil {
		return err //nolint:wrapcheck
	}
	defer stmt.Close()

	return do(stmt)
}

func (repo *Repository[T]) selectQuery(where string, params dto.QueryParams, columns ...string) (string, error) {
	exprs := make([]string, 0, len(repo.columns))

	for _, col := range repo.columns {
		if len(columns) > 0 && !slices.Contains(columns, col.name) {
			continue
		}

		exprs = append(exprs, col.selectExpr())
	}

	builder := sq.Select(exprs...).From(repo.table)
	if repo.join != "" {
		builder = builder.JoinClause(repo.join)
	}

	builder = builder.Where(where)

	if params.SortBy != "" && params.SortDir != "" {
		builder = builder.OrderBy(params.SortBy + " " + params.SortDir)
	}

	if params.Limit > 0 {
		builder = builder.Limit(uint64(params.Limit))

		if offset := params.Offset(); offset > 0 {
			builder = builder.Offset(uint64(offset))
		}
	}

	query, _, err := builder.ToSql()

	return query, err //nolint:wrapcheck
}

func (repo *Repository[T]) insertQuery() (string, error) {
	placeholders := make([]any, len(repo.insertColumns))
	for i, col := range repo.insertColumns {
		placeholders[i] = sq.Expr(":" + col)
	}

	query, _, err := sq.Insert(repo.table).Columns(repo.insertColumns...).Values(placeholders...).ToSql()

	return query, err //nolint:wrapcheck
}

// updateQuery sets every key of mod from the named argument of the same name. Keys are
// sorted so identical updates produce identical SQL.
func (repo *Repository[T]) updateQuery(mod map[string]any, where string) (string, error) {
	builder := sq.Update(repo.table)

	for _, col := range slices.Sorted(maps.Keys(mod)) {
		builder = builder.Set(col, sq.Expr(":"+col))
	}

	query, _, err := builder.Where(where).ToSql()

	return query, err //nolint:wrapcheck
}

func getColumns(table string, reflectType reflect.Type) (columns []column, insertColumns []string) {
	for i := range reflectType.NumField() {
		field := reflectType.Field(i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			col, insertCol := getColumns(table, field.Type)
			columns = append(columns, col...)
			insertColumns = append(insertColumns, insertCol...)

			continue
		}

		dbTag := field.Tag.Get("db")
		if dbTag == "" || dbTag == "-" {
			continue
		}

		tableField := field.Tag.Get("table")
		if tableField == "" {
			tableField = table
		}

		if tableField == table {
			insertColumns = append(insertColumns, dbTag)
		}

		if colTag := field.Tag.Get("column"); colTag != "" {
			columns = append(columns, column{name: colTag, table: tableField, alias: dbTag})
		} else {
			columns = append(columns, column{name: dbTag, table: tableField})
		}
	}

	return columns, insertColumns
}
