// Package log provides slog based logging with sanitisation of sensitive values.
//
// The SecureHandler masks session cookies and ASP.NET form state before a
// record reaches the underlying handler. The registry site keeps the browsing
// session in __VIEWSTATE and cookies, and neither belongs in a log file.
//
// # Usage
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true})
//	logger.Info("page fetched", "url", u, "cookie", c) // cookie is masked
//
// Strings that come from the remote sites are passed through Safe before
// being logged so that control characters cannot forge log lines.
package log
