// Package browser implements a small stateful HTTP session for the municipal
// sites: a cookie jar, HTML form state (including ASP.NET view-state
// postbacks) and plain JSON requests.
//
// A Browser keeps the most recently opened page and its forms. It is not
// safe for concurrent use; create one Browser per crawl.
package browser
