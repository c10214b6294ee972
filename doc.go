// Package authflow implements the authentication and session-lifecycle core
// for services that delegate identity to an external OAuth provider.
//
// Token families:
//   - Access tokens are short-lived HS256 JWTs carrying the local identity id
//     as subject. They are stateless; validity is signature plus expiry with a
//     configurable clock-skew tolerance.
//   - Refresh tokens are opaque, self-describing strings cached server-side
//     with a TTL. At most one refresh token is live per identity: minting a
//     new one supersedes the old entry, so a rotated-out token stops working
//     immediately even before its natural expiry.
//
// Protocols:
//   - SessionOrchestrator composes the provider client, the identity
//     repositories, and the refresh-token cache into the sign-in, sign-out,
//     and account-deletion sequences. Sign-out treats provider communication
//     as best-effort so local cleanup always completes; account deletion
//     aborts unless the provider-side unlink succeeds first.
//   - middleware/tokenware validates or transparently rotates tokens inside
//     the request path, so a caller with a valid refresh token never sees a
//     401 just because the access token aged out mid-session.
//
// Known residual risk: there is no access-token blacklist. An access token
// issued before sign-out stays verifiable until its own expiry.
package authflow
