// Package api implements the request client shared by every dashboard surface.
package api

// HeaderAuthorization is the standard HTTP Authorization header.
const HeaderAuthorization = "Authorization"

// BearerPrefix is the prefix for Bearer token authentication.
const BearerPrefix = "Bearer "

// HeaderContentType carries the request body encoding.
const HeaderContentType = "Content-Type"

// ContentTypeJSON is sent on every live request.
const ContentTypeJSON = "application/json"

// HeaderCacheControl disables intermediary caching of live responses.
const HeaderCacheControl = "Cache-Control"
