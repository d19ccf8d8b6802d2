// Package client executes single, independent HTTP GET and POST requests
// and hands back a one-shot response.
//
// # Security
//
// Every connection this package opens skips TLS certificate and hostname
// verification. The trust-all transport is installed once per process by
// [InitTransport], or implicitly by the first execution, and cannot be
// undone. Use this package only for endpoints whose identity does not need
// to be proven.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithLogger(logger),
//		client.WithThrottle(10, 5),
//	)
//
// # Making Requests
//
// Describe the exchange with a [RequestBuilder], then execute it:
//
//	req := c.NewRequest("https://api.example.com/v1/items").
//		Param("page", 2).
//		Param("full", true).
//		Timeout(5*time.Second, 2*time.Second).
//		Build()
//
//	resp, err := c.Execute(ctx, req)
//	if err != nil {
//		return err // *TransportError
//	}
//	defer resp.Close()
//
//	doc, err := resp.JSON()
//
// Each execution dials through its own transport with the request's
// connect and read timeouts; nothing is pooled across calls. Gzip bodies
// are decoded transparently.
//
// # Responses
//
// A [Response] body can be read exactly once, through [Response.Bytes],
// [Response.Text], [Response.JSON] or [Response.Decode]. Reading it again
// returns [ErrReleased]. A read that fails part way yields an empty result
// and records the failure in [Response.Cause].
//
// # Async Execution
//
// [Client.ExecuteAsync] runs on a low-priority goroutine and calls back
// with the outcome. [Client.Submit] queues the request on a bounded worker
// pool and returns a future:
//
//	f := c.Submit(ctx, req)
//	resp, err := f.Wait()
//
// See [github.com/adamwoolhether/oneshot/dispatch] for the policies.
package client
