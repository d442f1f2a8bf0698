// Package youtrack provides an authenticated session for the YouTrack REST API.
//
// A Connection owns the base address, the session cookie obtained by
// Authenticate and the request plumbing every resource wrapper builds on:
// GET, POST, PUT, HEAD and multipart file upload, with XML and JSON bodies
// decoded into typed values or a loosely typed Document.
//
// # Usage
//
//	logger := zerolog.New(os.Stdout)
//	conn, err := youtrack.NewConnection("youtrack.example.com", 443, true, "", logger,
//		youtrack.WithTimeout(30*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := conn.Authenticate(ctx, "root", "secret"); err != nil {
//		log.Fatal(err)
//	}
//
//	// Typed decoding
//	me, err := conn.GetCurrentUser(ctx)
//
//	// Envelope unwrapping, never nil
//	filters, err := youtrack.GetList[youtrack.MultipleFilters, youtrack.Filter](ctx, conn, "user/filters/root")
//
//	// Loosely typed body
//	doc, err := conn.Get(ctx, "admin/project")
//	name := doc.String("projects.project.0.name")
//
// # Error Handling
//
//   - *AuthenticationError: every Authenticate failure; matches ErrAuthenticationFailed
//   - *InvalidRequestError: a refused or unsatisfiable request; its Reason is
//     ErrInsufficientRights for a 403 on a GET, or ErrNotFound / a wrapper-defined reason
//   - *HTTPError: any other non-2xx response, with the server's status description
//
// Network errors are returned wrapped, never swallowed. Classify reduces any of
// these to an Outcome:
//
//	switch youtrack.Classify(err) {
//	case youtrack.OutcomeNotFound:
//		// ...
//	case youtrack.OutcomeInsufficientRights:
//		// ...
//	}
//
// # Concurrency
//
// A Connection is not safe for concurrent use. Calls never retry.
package youtrack
