package admin

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/s0up4200/youtrackr/youtrack"
)

// ErrUserNotFound is the reason reported when a user lookup comes back empty
var ErrUserNotFound = errors.New("User does not exist") //nolint:staticcheck // message is shown to users verbatim

// Session is the part of a YouTrack connection the user wrapper needs
type Session interface {
	youtrack.Getter
	Post(ctx context.Context, path string, data url.Values) (*youtrack.Response, error)
	Put(ctx context.Context, path string, data url.Values, accept string) (*youtrack.Response, error)
}

// UserManagement creates and looks up YouTrack users
type UserManagement struct {
	session Session
	logger  zerolog.Logger
}

// NewUserManagement creates a user wrapper over an authenticated session
func NewUserManagement(session Session, logger zerolog.Logger) *UserManagement {
	return &UserManagement{
		session: session,
		logger:  logger,
	}
}

// CreateUser creates an account without a password. It returns true only
// when the server answers 201 Created.
func (m *UserManagement) CreateUser(ctx context.Context, login, fullName, email string) (bool, error) {
	query := url.Values{}
	query.Set("login", login)
	query.Set("fullName", fullName)
	query.Set("email", email)

	resp, err := m.session.Post(ctx, "admin/user?"+query.Encode(), nil)
	return m.created(login, resp, err)
}

// CreateUserWithPassword creates (or replaces) the account at admin/user/{login}
// with a password, so the new user can authenticate straight away.
func (m *UserManagement) CreateUserWithPassword(ctx context.Context, login, fullName, email, password string) (bool, error) {
	query := url.Values{}
	query.Set("fullName", fullName)
	query.Set("email", email)
	query.Set("password", password)

	resp, err := m.session.Put(ctx, "admin/user/"+url.PathEscape(login)+"?"+query.Encode(), nil, "")
	return m.created(login, resp, err)
}

func (m *UserManagement) created(login string, resp *youtrack.Response, err error) (bool, error) {
	if err != nil {
		var httpErr *youtrack.HTTPError
		if errors.As(err, &httpErr) {
			m.logger.Warn().
				Str("login", login).
				Int("status", httpErr.StatusCode).
				Str("description", httpErr.Description).
				Msg("User was not created")
			return false, nil
		}
		return false, err
	}

	if resp.StatusCode != http.StatusCreated {
		m.logger.Warn().
			Str("login", login).
			Int("status", resp.StatusCode).
			Msg("User was not created")
		return false, nil
	}

	m.logger.Info().Str("login", login).Msg("Created user")
	return true, nil
}

// GetUserByUsername fetches a user by login. The payload does not echo the
// login back, so it is filled in from the argument.
func (m *UserManagement) GetUserByUsername(ctx context.Context, username string) (*youtrack.User, error) {
	user, err := youtrack.GetAs[youtrack.User](ctx, m.session, "user/bylogin/"+url.PathEscape(username))
	if err != nil {
		var httpErr *youtrack.HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return nil, &youtrack.InvalidRequestError{
				Reason: ErrUserNotFound,
				Err:    errors.Join(youtrack.ErrNotFound, httpErr),
			}
		}
		return nil, err
	}
	if user == nil {
		return nil, &youtrack.InvalidRequestError{Reason: ErrUserNotFound, Err: youtrack.ErrNotFound}
	}

	user.Username = username
	return user, nil
}

// GetFiltersByUsername returns the saved searches of a user. The slice is
// never nil.
func (m *UserManagement) GetFiltersByUsername(ctx context.Context, username string) ([]youtrack.Filter, error) {
	return youtrack.GetList[youtrack.MultipleFilters, youtrack.Filter](ctx, m.session, "user/filters/"+url.PathEscape(username))
}
