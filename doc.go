// Package pileapi is the account and project backend for the pile design tool.
// It provides email/password login, JWT issuance, bearer token middleware and
// an ownership gate, plus bun backed repositories for users and their projects.
//
// Login flow:
//   - UserProvider looks up the credential record by email, compares the bcrypt
//     hash and records the last activity timestamp. Any failure before the
//     timestamp write collapses into ErrInvalidCredentials.
//   - TokenService signs an HS256 token whose only private claim is "_id". The
//     subject carries the email and the token expires after 30 days.
//
// Protected requests:
//   - jwtware extracts the bearer token and hands it to Auther, which validates
//     the token and resolves the principal. A principal that no longer exists
//     fails closed.
//   - RequireOwner compares the principal id against the owner id in the path.
//
// Activity sinks:
//   - ActivitySink receives login, token and ownership events. Sinks run
//     best-effort (errors are logged) so metrics or audit forwarding never
//     block authentication.
package pileapi
