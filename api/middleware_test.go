package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/banachtech/pathpricer/config"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	testCases := []struct {
		name          string
		expiresAt     string
		setupAuth     func(t *testing.T, request *http.Request)
		checkResponse func(t *testing.T, recorder *httptest.ResponseRecorder)
	}{
		{
			name: "OK",
			setupAuth: func(t *testing.T, request *http.Request) {
				addAuthorization(request, authorizationTypeBearer, testKey)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
			},
		},
		{
			name:      "OK_NOT_EXPIRED",
			expiresAt: "2999-01-01 00:00:00",
			setupAuth: func(t *testing.T, request *http.Request) {
				addAuthorization(request, "Bearer", testKey)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusOK, recorder.Code)
			},
		},
		{
			name:      "NO_AUTHORIZATION",
			setupAuth: func(t *testing.T, request *http.Request) {},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
		{
			name: "UNSUPPORTED_AUTHORIZATION",
			setupAuth: func(t *testing.T, request *http.Request) {
				addAuthorization(request, "unsupported", testKey)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
		{
			name: "INVALID_AUTHORIZATION_FORMAT",
			setupAuth: func(t *testing.T, request *http.Request) {
				addAuthorization(request, "", testKey)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
		{
			name:      "EXPIRED_TOKEN",
			expiresAt: "2022-12-05 18:09:35",
			setupAuth: func(t *testing.T, request *http.Request) {
				addAuthorization(request, authorizationTypeBearer, testKey)
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
		{
			name: "WRONG_PREFIX_LENGTH",
			setupAuth: func(t *testing.T, request *http.Request) {
				addAuthorization(request, authorizationTypeBearer, "dmag_d8.RGbV3hb3LEwYohYW")
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
		{
			name: "UNKNOWN_PREFIX",
			setupAuth: func(t *testing.T, request *http.Request) {
				addAuthorization(request, authorizationTypeBearer, "abcd_efg.RGbV3hb3LEwYohYW")
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
		{
			name: "WRONG_SECRET",
			setupAuth: func(t *testing.T, request *http.Request) {
				addAuthorization(request, authorizationTypeBearer, "dmag_d8K.wrong")
			},
			checkResponse: func(t *testing.T, recorder *httptest.ResponseRecorder) {
				require.Equal(t, http.StatusUnauthorized, recorder.Code)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			server := newTestServer(t, newTestConfig(newTestKey(t, tc.expiresAt)), nil)
			recorder := serve(t, server, http.MethodGet, "/v1/info", nil, func(r *http.Request) {
				tc.setupAuth(t, r)
			})
			tc.checkResponse(t, recorder)
		})
	}
}

func TestRateLimit(t *testing.T) {
	c := newTestConfig(newTestKey(t, ""))
	c.Server.RateLimit = config.RateLimitConfig{Every: time.Hour, Burst: 2}
	server := newTestServer(t, c, nil)

	auth := func(r *http.Request) { addAuthorization(r, authorizationTypeBearer, testKey) }
	for i := 0; i < 2; i++ {
		recorder := serve(t, server, http.MethodGet, "/v1/info", nil, auth)
		require.Equal(t, http.StatusOK, recorder.Code)
	}
	recorder := serve(t, server, http.MethodGet, "/v1/info", nil, auth)
	require.Equal(t, http.StatusTooManyRequests, recorder.Code)
}

func TestNoKeysDisablesAuthentication(t *testing.T) {
	server := newTestServer(t, newTestConfig(), nil)
	recorder := serve(t, server, http.MethodGet, "/v1/info", nil, nil)
	require.Equal(t, http.StatusOK, recorder.Code)
}
