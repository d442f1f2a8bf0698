// Package admin wraps the YouTrack user administration endpoints.
//
// UserManagement works against any Session, which *youtrack.Connection
// satisfies:
//
//	users := admin.NewUserManagement(conn, logger)
//
//	created, err := users.CreateUserWithPassword(ctx, "jdoe", "John Doe", "jdoe@example.com", "s3cret")
//	user, err := users.GetUserByUsername(ctx, "jdoe")
//	filters, err := users.GetFiltersByUsername(ctx, "jdoe")
//
// The create calls report success as a boolean: only a 201 Created answer is
// true, any other status is false with a nil error. Errors are reserved for
// transport failures.
//
// A missing user is an *youtrack.InvalidRequestError whose reason is
// ErrUserNotFound. A lookup the server refuses carries
// youtrack.ErrInsufficientRights instead; youtrack.Classify tells them apart.
//
// LookupUsers fetches many users at once, each lookup on its own clone of the
// connection.
package admin
