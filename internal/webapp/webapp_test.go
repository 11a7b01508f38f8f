package webapp

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerServesContract(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	page := string(body)
	for _, sel := range []string{
		`id="role-selection-overlay"`,
		`id="role-overlay-alert"`,
		`data-role-card data-role="admin"`,
		`data-role-card data-role="driver"`,
		`data-role-card data-role="employee"`,
		`id="view-guest-admin"`,
		`id="view-guest-driver"`,
		`id="view-guest-employee"`,
		`>Admin</a>`,
	} {
		assert.Contains(t, page, sel)
	}

	resp, err = http.Get(srv.URL + "/app.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
