package shared

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"meetroom/shared/cache"
	"meetroom/shared/constant"
	"meetroom/shared/dto"
	"meetroom/shared/model"
	"meetroom/shared/timezone"

	"github.com/rs/zerolog/log"
)

const cacheKeySeparator = ":"

func ConvertStringToBool(value string) *bool {
	if value == "" {
		return nil
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Error().Err(err).Msg("failed to convert string to bool")

		return nil
	}

	return &boolValue
}

func ConvertStringToInt(value string) (int, error) {
	res, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		log.Error().Err(err).Str("value", value).Msg("failed to convert string to int")

		return 0, err //nolint:wrapcheck
	}

	return res, nil
}

func CalculateTotalPage(total, limit int) (res int) {
	if total == 0 || limit <= 0 {
		res = 1
	} else {
		res = int(math.Ceil(float64(total) / float64(limit)))
	}

	return res
}

// TransformFields collects the non-zero db-tagged fields of data, a struct, into an update
// column set stamped with username. Pointer fields are dereferenced, so a pointer to false
// is still written.
func TransformFields(data any, username string) map[string]any {
	val := reflect.Indirect(reflect.ValueOf(data))
	typ := val.Type()

	fields := map[string]any{}

	for index := range val.NumField() {
		column := typ.Field(index).Tag.Get("db")
		if column == "" || column == "-" {
			continue
		}

		field := val.Field(index)
		if field.IsZero() {
			continue
		}

		if field.Kind() == reflect.Pointer {
			field = field.Elem()
		}

		fields[column] = field.Interface()
	}

	return model.Touch(fields, username, timezone.Now())
}

func FilterByID(id, fieldID, table string) dto.FilterGroup {
	return dto.FilterGroup{
		Filters: []any{
			dto.Filter{
				Field:    fieldID,
				Value:    id,
				Operator: dto.FilterOperatorEq,
				Table:    table,
			},
		},
	}
}

// BuildCacheKey joins a key prefix with its identifying parts.
func BuildCacheKey(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), cacheKeySeparator)
}

// BuildCacheKeyWithQuery derives a stable key from pagination and filter values.
func BuildCacheKeyWithQuery(prefix string, params dto.QueryParams, filter dto.FilterGroup) string {
	where, args := filter.GetWhereClause()

	encodedArgs, err := json.Marshal(args)
	if err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("failed to encode cache key arguments")
	}

	digest := sha256.Sum256(append([]byte(where), encodedArgs...))

	return BuildCacheKey(
		prefix,
		strconv.Itoa(params.Page),
		strconv.Itoa(params.Limit),
		params.SortBy,
		params.SortDir,
		hex.EncodeToString(digest[:8]),
	)
}

// InvalidateCaches removes every key stored under prefix.
func InvalidateCaches(ctx context.Context, redisCache cache.RedisCache, prefix string) {
	if err := redisCache.Clear(ctx, prefix+constant.Asterix); err != nil {
		log.Error().Err(err).Str("prefix", prefix).Msg("failed to invalidate caches")
	}
}
