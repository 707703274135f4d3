package testserver

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ServesHealthAndGuardsAPI(t *testing.T) {
	srv := New(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.APIURL() + "/contacts")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var env struct {
		Status bool `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.False(t, env.Status)
}

func TestNew_WithoutAuth(t *testing.T) {
	srv := New(t, WithoutAuth())
	resp, err := http.Get(srv.APIURL() + "/contacts")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccount_Unique(t *testing.T) {
	srv := New(t, WithoutAuth())
	_, a, _ := srv.Account()
	_, b, pw := srv.Account()
	assert.NotEqual(t, a, b)
	assert.Equal(t, Password, pw)
}
