package youtrack

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionCookie = "YTJSESSIONID"

func newTestConnection(t *testing.T, server *httptest.Server, opts ...Option) *Connection {
	t.Helper()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	conn, err := NewConnection(u.Hostname(), port, false, "", zerolog.Nop(), opts...)
	require.NoError(t, err)
	return conn
}

// loginHandler accepts root/secret and hands out a session cookie.
func loginHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/xml", r.Header.Get("Accept"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())

		switch {
		case r.PostForm.Get("login") == "root" && r.PostForm.Get("password") == "secret":
			http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "abc123", Path: "/"})
			w.Header().Set("Content-Type", "application/xml")
			io.WriteString(w, "<login>ok</login>")
		case r.PostForm.Get("login") == "soft-reject":
			w.Header().Set("Content-Type", "application/xml")
			io.WriteString(w, "<login>failed</login>")
		default:
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, "<error>Incorrect login or password.</error>")
		}
	}
}

func requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || cookie.Value != "abc123" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func TestNewConnection(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		port    int
		useSSL  bool
		path    string
		wantURL string
		wantErr bool
	}{
		{
			name:    "plain http",
			host:    "localhost",
			port:    8080,
			wantURL: "http://localhost:8080/rest/",
		},
		{
			name:    "default http port",
			host:    "yt.example.com",
			wantURL: "http://yt.example.com:80/rest/",
		},
		{
			name:    "ssl with path",
			host:    "yt.example.com",
			useSSL:  true,
			path:    "/youtrack/",
			wantURL: "https://yt.example.com:443/youtrack/rest/",
		},
		{
			name:    "missing host",
			host:    "",
			port:    80,
			wantErr: true,
		},
		{
			name:    "host with scheme",
			host:    "https://yt.example.com",
			port:    443,
			wantErr: true,
		},
		{
			name:    "port out of range",
			host:    "localhost",
			port:    70000,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := NewConnection(tt.host, tt.port, tt.useSSL, tt.path, zerolog.Nop())
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, conn.BaseURL())
			assert.False(t, conn.IsAuthenticated())
		})
	}
}

func TestConnectionOptions(t *testing.T) {
	t.Run("with timeout", func(t *testing.T) {
		conn, err := NewConnection("localhost", 80, false, "", zerolog.Nop(), WithTimeout(5*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, conn.httpClient.Timeout)
	})

	t.Run("with custom http client", func(t *testing.T) {
		custom := &http.Client{Timeout: 10 * time.Second}
		conn, err := NewConnection("localhost", 80, false, "", zerolog.Nop(), WithHTTPClient(custom))
		require.NoError(t, err)
		assert.Same(t, custom, conn.httpClient)
	})

	t.Run("with user agent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "youtrackr-test", r.Header.Get("User-Agent"))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		conn := newTestConnection(t, server, WithUserAgent("youtrackr-test"))
		_, err := conn.Head(context.Background(), "user/current")
		require.NoError(t, err)
	})
}

func TestAuthenticate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/user/login", loginHandler(t))
	mux.HandleFunc("/rest/user/current", requireSession(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"fullName":"Root Admin","email":"root@example.com"}`)
	}))
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()

	t.Run("success stores session", func(t *testing.T) {
		conn := newTestConnection(t, server)

		require.NoError(t, conn.Authenticate(ctx, "root", "secret"))
		assert.True(t, conn.IsAuthenticated())
		assert.Equal(t, "root", conn.Username())

		user, err := conn.GetCurrentUser(ctx)
		require.NoError(t, err)
		assert.Equal(t, "root", user.Username)
		assert.Equal(t, "Root Admin", user.FullName)
		assert.Equal(t, "root@example.com", user.Email)
	})

	t.Run("rejected credentials in body", func(t *testing.T) {
		conn := newTestConnection(t, server)

		err := conn.Authenticate(ctx, "soft-reject", "whatever")
		require.Error(t, err)

		var authErr *AuthenticationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "Authentication failed", authErr.Error())
		assert.ErrorIs(t, err, ErrAuthenticationFailed)
		assert.False(t, conn.IsAuthenticated())
		assert.Empty(t, conn.Username())
	})

	t.Run("non-2xx carries status description", func(t *testing.T) {
		conn := newTestConnection(t, server)

		err := conn.Authenticate(ctx, "root", "wrong")
		require.Error(t, err)

		var authErr *AuthenticationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "Forbidden", authErr.Error())
		assert.Equal(t, http.StatusForbidden, authErr.StatusCode)

		var httpErr *HTTPError
		assert.ErrorAs(t, err, &httpErr)
	})

	t.Run("failed attempt drops previous session", func(t *testing.T) {
		conn := newTestConnection(t, server)
		require.NoError(t, conn.Authenticate(ctx, "root", "secret"))

		require.Error(t, conn.Authenticate(ctx, "root", "wrong"))
		assert.False(t, conn.IsAuthenticated())
		assert.Empty(t, conn.Username())

		_, err := conn.GetCurrentUser(ctx)
		assert.ErrorIs(t, err, ErrInsufficientRights)
	})

	t.Run("logout forgets the cookie", func(t *testing.T) {
		conn := newTestConnection(t, server)
		require.NoError(t, conn.Authenticate(ctx, "root", "secret"))

		conn.Logout()
		assert.False(t, conn.IsAuthenticated())
		assert.Empty(t, conn.Username())

		_, err := conn.GetCurrentUser(ctx)
		assert.ErrorIs(t, err, ErrInsufficientRights)
	})
}

func TestAuthenticateTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	conn := newTestConnection(t, server)
	server.Close()

	err := conn.Authenticate(context.Background(), "root", "secret")
	require.Error(t, err)

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.NotEmpty(t, authErr.Error())
	assert.Zero(t, authErr.StatusCode)

	var urlErr *url.Error
	assert.ErrorAs(t, err, &urlErr)
}

func TestGetErrorMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/admin/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/rest/admin/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := newTestConnection(t, server)
	ctx := context.Background()

	t.Run("403 is insufficient rights", func(t *testing.T) {
		_, err := conn.Get(ctx, "admin/forbidden")
		require.Error(t, err)

		var invalid *InvalidRequestError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "Insufficient rights", err.Error())
		assert.ErrorIs(t, err, ErrInsufficientRights)

		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
		assert.Equal(t, http.StatusForbidden, conn.LastStatus())
	})

	t.Run("typed get maps 403 the same way", func(t *testing.T) {
		_, err := GetAs[User](ctx, conn, "admin/forbidden")
		assert.ErrorIs(t, err, ErrInsufficientRights)
	})

	t.Run("other statuses propagate unchanged", func(t *testing.T) {
		_, err := conn.Get(ctx, "admin/broken")
		require.Error(t, err)

		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
		assert.Equal(t, "Internal Server Error", httpErr.Description)
		assert.Contains(t, httpErr.Body, "boom")

		var invalid *InvalidRequestError
		assert.False(t, errors.As(err, &invalid))
	})
}

func TestGetDecoding(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/user/bylogin/xml", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		// answers XML even though JSON was requested
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, `<user fullName="Xml User" email="xml@example.com"/>`)
	})
	mux.HandleFunc("/rest/user/bylogin/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"fullName":"Json User","email":"json@example.com"}`)
	})
	mux.HandleFunc("/rest/user/bylogin/empty", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/rest/user/filters/many", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, `<queries><query name="Open" query="#Unresolved"/><query name="Mine" query="for: me"/></queries>`)
	})
	mux.HandleFunc("/rest/user/filters/none", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, `<queries/>`)
	})
	mux.HandleFunc("/rest/user/filters/absent", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := newTestConnection(t, server)
	ctx := context.Background()

	t.Run("xml body", func(t *testing.T) {
		user, err := GetAs[User](ctx, conn, "user/bylogin/xml")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "Xml User", user.FullName)
		assert.Equal(t, "xml@example.com", user.Email)
	})

	t.Run("json body", func(t *testing.T) {
		user, err := GetAs[User](ctx, conn, "user/bylogin/json")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "Json User", user.FullName)
	})

	t.Run("empty body is absent", func(t *testing.T) {
		user, err := GetAs[User](ctx, conn, "user/bylogin/empty")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("loosely typed document", func(t *testing.T) {
		doc, err := conn.Get(ctx, "user/bylogin/xml")
		require.NoError(t, err)
		assert.Equal(t, FormatXML, doc.Format())
		assert.Equal(t, "Xml User", doc.String("user.fullName"))
	})

	t.Run("envelope with filters", func(t *testing.T) {
		filters, err := GetList[MultipleFilters, Filter](ctx, conn, "user/filters/many")
		require.NoError(t, err)
		require.Len(t, filters, 2)
		assert.Equal(t, Filter{Name: "Open", Query: "#Unresolved"}, filters[0])
		assert.Equal(t, Filter{Name: "Mine", Query: "for: me"}, filters[1])
	})

	t.Run("envelope without filters", func(t *testing.T) {
		filters, err := GetList[MultipleFilters, Filter](ctx, conn, "user/filters/none")
		require.NoError(t, err)
		assert.NotNil(t, filters)
		assert.Empty(t, filters)
	})

	t.Run("absent envelope", func(t *testing.T) {
		filters, err := GetList[MultipleFilters, Filter](ctx, conn, "user/filters/absent")
		require.NoError(t, err)
		assert.NotNil(t, filters)
		assert.Empty(t, filters)
	})
}

func TestHead(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/issue/TEST-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := newTestConnection(t, server)
	ctx := context.Background()

	status, err := conn.Head(ctx, "issue/TEST-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, http.StatusOK, conn.LastStatus())

	status, err = conn.Head(ctx, "issue/TEST-2")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, http.StatusNotFound, conn.LastStatus())
	assert.Equal(t, OutcomeNotFound, Classify(err))
}

func TestPostAndPut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/admin/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/xml", r.Header.Get("Accept"))
		assert.Equal(t, "jdoe", r.URL.Query().Get("login"))
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/rest/admin/user/jdoe", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "value", r.PostForm.Get("key"))
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/rest/admin/echo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"echo":"`+r.PostForm.Get("say")+`"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := newTestConnection(t, server)
	ctx := context.Background()

	resp, err := conn.Post(ctx, "admin/user?login=jdoe", nil)
	require.NoError(t, err)
	assert.True(t, resp.IsCreated())
	assert.Equal(t, "Created", resp.Status)

	resp, err = conn.Put(ctx, "admin/user/jdoe", url.Values{"key": {"value"}}, "")
	require.NoError(t, err)
	assert.False(t, resp.IsCreated())

	doc, err := conn.PostAccept(ctx, "admin/echo", url.Values{"say": {"hello"}}, "application/json")
	require.NoError(t, err)
	assert.Equal(t, "hello", doc.String("echo"))

	_, err = conn.Post(ctx, "admin/missing", nil)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}

func TestCloneIsIndependent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/user/login", loginHandler(t))
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := newTestConnection(t, server)
	require.NoError(t, conn.Authenticate(context.Background(), "root", "secret"))

	clone := conn.Clone()
	conn.Logout()

	assert.False(t, conn.IsAuthenticated())
	assert.True(t, clone.IsAuthenticated())
	assert.Equal(t, "root", clone.Username())
	assert.Equal(t, conn.BaseURL(), clone.BaseURL())
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t,
		"http://localhost:80/rest/admin/user/jdoe?email=j%40example.com&password=xxxxx",
		redactURL("http://localhost:80/rest/admin/user/jdoe?email=j%40example.com&password=hunter2"))
	assert.Equal(t, "http://localhost:80/rest/user/current", redactURL("http://localhost:80/rest/user/current"))
}
