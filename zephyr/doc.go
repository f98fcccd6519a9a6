// Package zephyr provides a client for the Zephyr Scale Server REST API.
//
// Zephyr Scale is a test management add-on for Jira. This package covers the
// parts of its API used by zfr: folders and test plans, including plan
// attachments.
//
// # Architecture
//
//   - Client: an authenticated session bound to a base URL, with a retry
//     policy for transient server errors and a default request timeout
//   - FolderManager: folder create and update
//   - PlanManager: test plan create, get, update, delete and attachments
//   - Types: snake_case records exchanged with the managers
//   - Errors: structured error types for authorization and remote failures
//
// Records use snake_case field names. They are converted to and from the
// camelCase wire format with the casing package on every request.
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	client, err := zephyr.NewClient(
//		"https://jira.example.com",
//		"username",
//		"password",
//		logger,
//		zephyr.WithTimeout(30*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	plans := zephyr.NewPlanManager(client, logger)
//	plan, err := plans.Get(ctx, "ABC-P1")
//	if err != nil {
//		log.Fatal(err)
//	}
//	if plan == nil {
//		// no such plan
//	}
//
// # Error Handling
//
// Every response is inspected before it reaches the managers:
//
//   - 401 and 403 become an AuthorizationError
//   - any other status above 403, except 404, becomes a RemoteError
//
// 404 is returned to the caller, which decides whether it means "absent"
// (Get, GetAttachments) or "already gone" (Delete). Validation failures that
// cannot be recovered from are reported as a ValidationError.
//
// # Missing Folders
//
// Creating or updating a plan that references a folder which does not exist
// fails with a 400. The PlanManager recognises that message, creates the
// folder and retries the request once.
package zephyr
