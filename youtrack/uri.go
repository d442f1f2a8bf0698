package youtrack

import (
	"fmt"
	"net/url"
	"strings"
)

// uriBuilder turns resource commands such as "user/bylogin/root" into
// absolute URLs below {protocol}://{host}:{port}/{path}/rest/.
type uriBuilder struct {
	base string
}

func newURIBuilder(protocol, host string, port int, path string) (*uriBuilder, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if strings.Contains(host, "://") {
		return nil, fmt.Errorf("%w: host must not include a scheme: %s", ErrInvalidConfig, host)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, port)
	}

	path = strings.Trim(strings.TrimSpace(path), "/")
	if path != "" {
		path += "/"
	}

	base := fmt.Sprintf("%s://%s:%d/%srest/", protocol, host, port, path)
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &uriBuilder{base: base}, nil
}

// build returns the absolute URL for command. command may carry its own
// query string.
func (b *uriBuilder) build(command string) (string, error) {
	u, err := url.Parse(b.base + strings.TrimLeft(command, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid resource path %q: %w", command, err)
	}
	return u.String(), nil
}

// redactURL masks password query values so URLs can be logged.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	if q.Get("password") == "" {
		return raw
	}
	q.Set("password", "xxxxx")
	u.RawQuery = q.Encode()
	return u.String()
}
