package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"meetroom/config"
	"meetroom/infras/jwt"
	"meetroom/infras/otel"
	"meetroom/permissions"
	"meetroom/shared/constant"
	"meetroom/shared/failure"
	"meetroom/shared/identity"
	"meetroom/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Auth interface {
	Auth(http.Handler) http.Handler
	APIKey(http.Handler) http.Handler
}

type Role interface {
	RBAC(http.Handler) http.Handler
}

type AuthRole interface {
	Auth
	Role
}

type authRoleImpl struct {
	jwtService jwt.JWT
	otel       otel.Otel
	rules      *permissions.PermissionData
	cfg        *config.Config
}

func NewAuthRoleMiddleware(jwtService jwt.JWT, otel otel.Otel, rules *permissions.PermissionData, cfg *config.Config) AuthRole {
	return &authRoleImpl{
		jwtService: jwtService,
		otel:       otel,
		rules:      rules,
		cfg:        cfg,
	}
}

// rule resolves the permission entry of the chi route pattern the request will hit.
func (m *authRoleImpl) rule(request *http.Request) (string, permissions.Permission) {
	path := request.URL.Path

	if rctx := chi.RouteContext(request.Context()); rctx != nil && rctx.Routes != nil {
		if pattern := rctx.Routes.Find(chi.NewRouteContext(), request.Method, request.URL.Path); pattern != "" {
			path = pattern
		}
	}

	if m.rules == nil {
		return path, permissions.Permission{}
	}

	return path, m.rules.FindPermissions(path, request.Method)
}

func deny(writer http.ResponseWriter, scope otel.Scope, err error) {
	scope.TraceError(err)
	response.WithError(writer, err)
}

func tokenFailure(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpiredToken):
		return failure.Unauthorized("Token has expired")
	case errors.Is(err, jwt.ErrInvalidToken):
		return failure.Unauthorized("Invalid token")
	case errors.Is(err, jwt.ErrInvalidClaim):
		return failure.Unauthorized("Invalid token claims")
	default:
		return failure.Unauthorized("Token validation failed")
	}
}

// authenticate turns the bearer token into the caller's context values.
func (m *authRoleImpl) authenticate(ctx context.Context, header string) (context.Context, error) {
	if header == "" {
		return ctx, failure.Unauthorized("Missing authorization header")
	}

	token, err := jwt.ExtractTokenFromHeader(header)
	if err != nil {
		return ctx, failure.Unauthorized("Invalid authorization header format")
	}

	claims, err := m.jwtService.ValidateToken(token, jwt.AccessToken)
	if err != nil {
		return ctx, tokenFailure(err)
	}

	if claims.UserID == "" {
		log.Error().Str("token_id", claims.TokenID).Msg("access token without user id")

		return ctx, failure.Unauthorized("Invalid token claims")
	}

	ctx = context.WithValue(ctx, constant.ContextKeyUserID, claims.UserID)
	ctx = context.WithValue(ctx, constant.ContextKeyUserEmail, claims.Email)
	ctx = context.WithValue(ctx, constant.ContextKeyUserRole, claims.Role)
	ctx = context.WithValue(ctx, constant.ContextKeyTokenID, claims.TokenID)

	return ctx, nil
}

// Auth requires a valid access token, except for internal callers and public routes. On
// public routes a valid token still identifies the caller, an invalid one is ignored.
func (m *authRoleImpl) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "auth.middleware")
		defer scope.End()

		if identity.Internal(ctx) {
			next.ServeHTTP(writer, request)

			return
		}

		path, rule := m.rule(request)
		scope.SetAttributes(map[string]any{
			"middleware.type": "auth",
			"http.path":       path,
			"http.method":     request.Method,
		})

		header := request.Header.Get(constant.RequestHeaderAuthorization)

		if rule.Skip {
			if authed, err := m.authenticate(request.Context(), header); err == nil {
				request = request.WithContext(authed)
			}

			next.ServeHTTP(writer, request)

			return
		}

		authed, err := m.authenticate(request.Context(), header)
		if err != nil {
			deny(writer, scope, err)

			return
		}

		next.ServeHTTP(writer, request.WithContext(authed))
	})
}

// RBAC enforces the roles listed for the route. Routes without roles are open to every
// authenticated caller.
func (m *authRoleImpl) RBAC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "rbac.middleware")
		defer scope.End()

		if identity.Internal(ctx) {
			next.ServeHTTP(writer, request)

			return
		}

		if m.rules == nil {
			deny(writer, scope, failure.ForbiddenError)

			return
		}

		_, rule := m.rule(request)
		if m.rules.Skip || rule.Skip || len(rule.Permissions) == 0 {
			next.ServeHTTP(writer, request)

			return
		}

		role, _ := ctx.Value(constant.ContextKeyUserRole).(string)
		if !slices.Contains(rule.Permissions, role) {
			scope.SetAttributes(map[string]any{
				"user_role":     role,
				"allowed_roles": rule.Permissions,
			})
			deny(writer, scope, failure.ForbiddenError)

			return
		}

		next.ServeHTTP(writer, request)
	})
}

// APIKey marks requests carrying the internal API key as trusted. A wrong key is refused
// outright rather than falling back to token auth.
func (m *authRoleImpl) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx, scope := m.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, "api_key.middleware")
		defer scope.End()

		key := request.Header.Get(constant.RequestHeaderAPIKey)
		if key == "" {
			scope.SetAttribute("http.source", "client")
			next.ServeHTTP(writer, request)

			return
		}

		scope.SetAttribute("http.source", "internal")

		if m.cfg.App.APIKey == "" || key != m.cfg.App.APIKey {
			deny(writer, scope, failure.ForbiddenError)

			return
		}

		next.ServeHTTP(writer, request.WithContext(identity.WithInternal(ctx)))
	})
}
