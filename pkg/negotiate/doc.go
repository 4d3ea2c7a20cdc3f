// Package negotiate implements HTTP content negotiation for the Accept and
// Accept-Language headers.
//
// [ParseAccept] turns an Accept header into media ranges ordered by quality;
// equal qualities keep the order in which the client declared them.
// [Negotiate] walks those ranges and returns the first offer that fits:
//
//	// Accept: text/html;q=0.9, application/json
//	negotiate.Negotiate(r.Header.Get("Accept"), "text/plain", "application/json") // "application/json"
//
//	// Accept: */*
//	negotiate.Negotiate("*/*", "text/plain", "application/json") // "text/plain"
//
// [Language] matches Accept-Language against supported BCP 47 tags:
//
//	negotiate.Language("de-CH, fr;q=0.8", "en", "de", "fr") // "de"
package negotiate
