package permissions_test

import (
	"net/http"
	"testing"

	"meetroom/permissions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	rules := permissions.Get()
	require.NotNil(t, rules)

	t.Run("public availability", func(t *testing.T) {
		assert.True(t, rules.FindPermissions("/v1/rooms/{id}/availability", http.MethodGet).Skip)
	})

	t.Run("admin only room changes", func(t *testing.T) {
		rule := rules.FindPermissions("/v1/rooms/{id}", http.MethodDelete)

		assert.False(t, rule.Skip)
		assert.ElementsMatch(t, []string{"admin", "superadmin"}, rule.Permissions)
	})

	t.Run("trailing slash resolves to the same rule", func(t *testing.T) {
		for _, path := range []string{"/v1/bookings", "/v1/bookings/"} {
			rule := rules.FindPermissions(path, http.MethodGet)

			assert.False(t, rule.Skip, path)
			assert.ElementsMatch(t, []string{"admin", "superadmin"}, rule.Permissions, path)
		}

		assert.True(t, rules.FindPermissions("/v1/rooms", http.MethodGet).Skip)
		assert.True(t, rules.FindPermissions("/v1/rooms/", http.MethodGet).Skip)
	})

	t.Run("unlisted route needs only a login", func(t *testing.T) {
		rule := rules.FindPermissions("/v1/bookings/mine", http.MethodGet)

		assert.False(t, rule.Skip)
		assert.Empty(t, rule.Permissions)
	})
}

func TestParse(t *testing.T) {
	t.Run("duplicate route", func(t *testing.T) {
		_, err := permissions.Parse([]byte(`{"endpoints":[
			{"path":"/v1/rooms/","method":"GET","skip":true},
			{"path":"/v1/rooms","method":"get"}
		]}`))

		assert.ErrorContains(t, err, "duplicate permission for GET /v1/rooms")
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := permissions.Parse([]byte(`{`))

		assert.Error(t, err)
	})
}
