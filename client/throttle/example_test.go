package throttle_test

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adamwoolhether/oneshot/client/throttle"
)

func ExampleLimiter_Wrap() {
	l, err := throttle.New(throttle.Config{RPS: 10, Burst: 5}, slog.Default())
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	_ = &http.Client{Transport: l.Wrap(http.DefaultTransport)}

	fmt.Println("throttled transport created")
	// Output: throttled transport created
}
