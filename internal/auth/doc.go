// Package auth is the identity half of the Roofwatch admission pipeline.
//
// A request is admitted in stages, each short-circuiting on failure:
//   - TokenAuthenticator extracts the bearer credential and verifies it with
//     an external IdentityProvider (locally verified HS256 JWTs or a remote
//     GoTrue-compatible endpoint).
//   - ProfileResolver loads the stored profile: role, active flag and
//     primary tenant. No profile means unauthenticated; an inactive profile
//     means suspended.
//   - Authorizer composes the two behind RequireAuth, RequireAdmin and
//     RequireClient. Client identities carry their effective tenant set, the
//     union of the primary tenant and explicit grants.
//   - OwnershipResolver walks a resource's parent chain up to its tenant and
//     checks it against the caller's scope.
//
// Tenant scoping is "default deny": a client with no primary tenant and no
// grants can reach nothing. Admins carry a nil scope and bypass ownership
// checks entirely.
package auth
