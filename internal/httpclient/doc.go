// Package httpclient provides the HTTP transport shared by every replayed request.
//
// The httpclient package handles:
//   - Client construction with redirect following, no response decompression,
//     proxy support from the environment and no cookie jar
//   - Resolving replay targets against a base URI
//   - Validating and cloning default headers into each request
//
// # Request Building
//
// Use [NewRequestBuilder] with the base URI and headers of a replay definition:
//
//	builder, err := httpclient.NewRequestBuilder(def.BaseURI, def.Headers, logger)
//	if err != nil {
//		return err
//	}
//	req, err := builder.Build(ctx, "/api/movies?page=2")
//
// Headers that are not valid HTTP field names or values are logged and skipped.
//
// # HTTP Client
//
// The [NewClient] function creates a client whose idle pool is sized for the
// configured concurrency level:
//
//	client := httpclient.NewClient(httpclient.ClientOptions{Timeout: 30 * time.Second, MaxIdlePerHost: 16})
//
// A single client and builder are safe for concurrent use by all requests of a run.
package httpclient
