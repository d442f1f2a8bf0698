package admin

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/youtrackr/youtrack"
)

const sessionCookie = "YTJSESSIONID"

type fakeAccount struct {
	fullName string
	email    string
	password string
	admin    bool
	filters  []youtrack.Filter
	// blank answers lookups with 200 and no body
	blank bool
}

// fakeYouTrack is an in-memory stand-in for the user endpoints of a YouTrack server.
type fakeYouTrack struct {
	mu       sync.Mutex
	accounts map[string]*fakeAccount
	sessions map[string]string
	// forbidUnknown answers lookups of unknown logins with 403 instead of 404
	forbidUnknown bool
}

func newFakeYouTrack() *fakeYouTrack {
	return &fakeYouTrack{
		accounts: map[string]*fakeAccount{
			"root": {fullName: "Administrator", email: "root@example.com", password: "secret", admin: true},
			"youtrackapi": {
				fullName: "YoutrackAPI User",
				email:    "api@example.com",
				password: "api",
				filters: []youtrack.Filter{
					{Name: "Assigned to me", Query: "for: me #Unresolved"},
					{Name: "Reported by me", Query: "by: me"},
				},
			},
			"phantom": {fullName: "Phantom", blank: true},
		},
		sessions: make(map[string]string),
	}
}

func (f *fakeYouTrack) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/user/login", f.login)
	mux.HandleFunc("GET /rest/user/bylogin/{login}", f.requireAdmin(f.getUser))
	mux.HandleFunc("GET /rest/user/filters/{login}", f.requireSession(f.getFilters))
	mux.HandleFunc("POST /rest/admin/user", f.requireAdmin(f.createUser))
	mux.HandleFunc("PUT /rest/admin/user/{login}", f.requireAdmin(f.putUser))
	return mux
}

func (f *fakeYouTrack) account(login string) *fakeAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[login]
}

func (f *fakeYouTrack) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	login := r.PostForm.Get("login")

	account := f.account(login)
	if account == nil || account.password == "" || account.password != r.PostForm.Get("password") {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "<error>Incorrect login or password.</error>")
		return
	}

	token := login + "-session"
	f.mu.Lock()
	f.sessions[token] = login
	f.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/"})
	w.Header().Set("Content-Type", "application/xml")
	io.WriteString(w, "<login>ok</login>")
}

func (f *fakeYouTrack) sessionAccount(r *http.Request) *fakeAccount {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	f.mu.Lock()
	login, ok := f.sessions[cookie.Value]
	f.mu.Unlock()
	if !ok {
		return nil
	}
	return f.account(login)
}

func (f *fakeYouTrack) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f.sessionAccount(r) == nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (f *fakeYouTrack) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account := f.sessionAccount(r)
		if account == nil || !account.admin {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (f *fakeYouTrack) getUser(w http.ResponseWriter, r *http.Request) {
	account := f.account(r.PathValue("login"))
	switch {
	case account == nil && f.forbidUnknown:
		w.WriteHeader(http.StatusForbidden)
	case account == nil:
		w.WriteHeader(http.StatusNotFound)
	case account.blank:
		w.WriteHeader(http.StatusOK)
	default:
		writeXML(w, youtrack.User{FullName: account.fullName, Email: account.email})
	}
}

func (f *fakeYouTrack) getFilters(w http.ResponseWriter, r *http.Request) {
	var filters []youtrack.Filter
	if account := f.account(r.PathValue("login")); account != nil {
		filters = account.filters
	}
	writeXML(w, youtrack.MultipleFilters{Filters: filters})
}

func (f *fakeYouTrack) createUser(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	login := query.Get("login")

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[login]; exists || login == "" {
		w.WriteHeader(http.StatusConflict)
		return
	}
	f.accounts[login] = &fakeAccount{fullName: query.Get("fullName"), email: query.Get("email")}
	w.WriteHeader(http.StatusCreated)
}

func (f *fakeYouTrack) putUser(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[r.PathValue("login")] = &fakeAccount{
		fullName: query.Get("fullName"),
		email:    query.Get("email"),
		password: query.Get("password"),
	}
	w.WriteHeader(http.StatusCreated)
}

func writeXML(w http.ResponseWriter, v any) {
	body, err := xml.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(body)
}

func newConnection(t *testing.T, server *httptest.Server, opts ...youtrack.Option) *youtrack.Connection {
	t.Helper()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	conn, err := youtrack.NewConnection(u.Hostname(), port, false, "", zerolog.Nop(), opts...)
	require.NoError(t, err)
	return conn
}

func authenticatedConnection(t *testing.T, server *httptest.Server, username, password string, opts ...youtrack.Option) *youtrack.Connection {
	t.Helper()

	conn := newConnection(t, server, opts...)
	require.NoError(t, conn.Authenticate(context.Background(), username, password))
	return conn
}
