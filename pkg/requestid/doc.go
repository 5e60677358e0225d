// Package requestid attaches a correlation id to every HTTP request.
//
// Middleware reuses a well-formed client supplied X-Request-ID header or
// generates a UUID, stores it in the request context and echoes it back in
// the response. FromContext reads it again; LoggerExtractor plugs it into
// logger.WithContextExtractors so every log line of a request carries it.
//
//	r := chi.NewRouter()
//	r.Use(requestid.Middleware)
package requestid
