package ports_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Amund211/ringside/internal/ports"
	"github.com/stretchr/testify/require"
)

func TestNewDomainSuffixes(t *testing.T) {
	t.Parallel()

	_, err := ports.NewDomainSuffixes(".tutien.gg")
	require.ErrorContains(t, err, "should not start with a dot")

	_, err = ports.NewDomainSuffixes("https://tutien.gg")
	require.ErrorContains(t, err, "should not contain a scheme")

	_, err = ports.NewDomainSuffixes("tutien.gg", "tutien-staging.pages.dev")
	require.NoError(t, err)
}

func TestCORS(t *testing.T) {
	t.Parallel()

	allowedOrigins, err := ports.NewDomainSuffixes(
		"tutien.gg",
		"tutien-staging.pages.dev",
	)
	require.NoError(t, err)

	cases := []struct {
		origin  string
		allowed bool
	}{
		// Prod
		{origin: "https://tutien.gg", allowed: true},
		{origin: "https://www.tutien.gg", allowed: true},
		{origin: "https://arena.tutien.gg", allowed: true},
		// Staging
		{origin: "https://tutien-staging.pages.dev", allowed: true},
		{origin: "https://53bcd591.tutien-staging.pages.dev", allowed: true},
		{origin: "https://new-api.tutien-staging.pages.dev", allowed: true},
		// Other pages
		{origin: "example.com", allowed: false},
		{origin: "https://example.com", allowed: false},
		{origin: "https://www.google.com", allowed: false},
		// Similar-looking domains
		{origin: "https://tu-tien.gg", allowed: false},
		{origin: "https://mytutien.gg", allowed: false},
		{origin: "https://www.mytutien.gg", allowed: false},
		{origin: "https://supertutien-staging.pages.dev", allowed: false},
		{origin: "https://something.othertutien-staging.pages.dev", allowed: false},
		// Scheme is required to be https
		{origin: "http://tutien.gg", allowed: false},
		{origin: "tutien.gg", allowed: false},
		// Weird cases
		{origin: "", allowed: false},
		{origin: "tutien", allowed: false},
		{origin: "gg", allowed: false},
		{origin: "pages.dev", allowed: false},
	}

	runCORSTest := func(t *testing.T, handler http.HandlerFunc, method string, origin string, allowed bool, handlerStatusCode int, handlerBody []byte) {
		req := httptest.NewRequest(method, "https://api.tutien.gg/v1/arena/rank/someone", nil)
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()

		handler(w, req)

		resp := w.Result()

		// The wrapped handler runs for everything but preflight
		if method != "OPTIONS" {
			require.Equal(t, handlerStatusCode, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Equal(t, handlerBody, body)
		}

		if allowed {
			require.Equal(t, origin, resp.Header.Get("Access-Control-Allow-Origin"))

			if method == "OPTIONS" {
				require.Equal(t, "GET,POST", resp.Header.Get("Access-Control-Allow-Methods"))
				require.Equal(t, "Content-Type, X-User-Id", resp.Header.Get("Access-Control-Allow-Headers"))
			} else {
				require.Empty(t, resp.Header.Get("Access-Control-Allow-Methods"))
				require.Empty(t, resp.Header.Get("Access-Control-Allow-Headers"))
			}
		} else {
			require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
			require.Empty(t, resp.Header.Get("Access-Control-Allow-Methods"))
			require.Empty(t, resp.Header.Get("Access-Control-Allow-Headers"))
		}
	}

	t.Run("BuildCORSMiddleware", func(t *testing.T) {
		middleware := ports.BuildCORSMiddleware(allowedOrigins)

		handler := middleware(
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("Hello, world!"))
				w.WriteHeader(200)
			},
		)

		for _, c := range cases {
			t.Run(fmt.Sprintf("Origin:'%s'", c.origin), func(t *testing.T) {
				t.Parallel()
				for _, method := range []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"} {
					t.Run(method, func(t *testing.T) {
						t.Parallel()

						runCORSTest(t, handler, method, c.origin, c.allowed, 200, []byte("Hello, world!"))
					})
				}
			})
		}
	})

	t.Run("BuildCORSHandler", func(t *testing.T) {
		handler := ports.BuildCORSHandler(allowedOrigins)

		for _, c := range cases {
			t.Run(fmt.Sprintf("Origin:'%s'", c.origin), func(t *testing.T) {
				t.Parallel()
				for _, method := range []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"} {
					t.Run(method, func(t *testing.T) {
						t.Parallel()

						runCORSTest(t, handler, method, c.origin, c.allowed, 204, []byte{})
					})
				}
			})
		}
	})
}
