// Package auth provides authentication middleware for the status board.
//
// APIKey(mode, header, key) returns HTTP middleware that validates the API
// key carried in the named request header.
//
// When mode != "apikey" or key == "", all requests pass through (local
// development with auth disabled). A missing or incorrect key is answered
// with 401 and a JSON error body before the wrapped handler runs.
package auth
