// Package services implements the ListenBrainz gateways: [FeedRepository] and [PlaylistRepository] over the
// JSON API, and [SyndicationService] over the public Atom feed.
//
// # ListenBrainz API
//
// [ListenBrainzService] maps a [models.FeedQuery] to one of three endpoints:
//   - events    : GET /user/{user}/feed/events
//   - following : GET /user/{user}/feed/events/listens/following
//   - similar   : GET /user/{user}/feed/events/listens/similar
//
// with the query parameters count, max_ts and min_ts. Every request carries
// "Authorization: Token <token>", set through [oauth2.Token.SetAuthHeader] with
// the token type "Token". Writes (pin, delete, recommend, review) POST JSON and
// succeed on any 2xx; the response body is ignored.
//
// Outbound requests are paced by a [rate.Limiter] when one is configured.
//
// # Error Handling
//
// Calls never retry. Failures are reported with the shared taxonomy:
//   - [shared.ErrNetwork] : transport failure, timeout, or cancelled context
//   - [shared.HTTPError] : non-2xx status (matches [shared.ErrAPIRequest])
//   - [shared.ErrDecode] : malformed response body
//   - [shared.ErrValidation] : review rejected locally; no request is made
//
// # Syndication
//
// [SyndicationService] reads {site}/syndication-feed/user/{user}/events with
// gofeed. It needs no token and is used for read-only, unauthenticated views.
package services
