package retryx_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinia/bulkx/retryx"
)

func ExampleConstantRetry() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// A status check answering "pending" twice before the operation completes.
	pending := 2
	checks := 0
	err := retryx.ConstantRetry(func() error {
		checks++
		if pending > 0 {
			pending--
			return errors.New("operation pending")
		}
		return nil
	},
		retryx.WithInterval(time.Millisecond),
		retryx.WithUnlimitedRetries(),
		retryx.WithContext(ctx),
	)

	fmt.Println(checks, err)
	// Output: 3 <nil>
}

func ExampleExponentialRetry() {
	attempts := 0
	err := retryx.ExponentialRetry(func() error {
		attempts++
		return errors.New("broker not reachable")
	},
		retryx.WithInterval(time.Millisecond),
		retryx.WithMaxInterval(4*time.Millisecond),
		retryx.WithRetryCount(4),
	)

	fmt.Println(attempts, err)
	// Output: 4 broker not reachable
}

func ExamplePermanent() {
	attempts := 0
	err := retryx.ConstantRetry(func() error {
		attempts++
		return retryx.Permanent(errors.New("session is sealed"))
	}, retryx.WithUnlimitedRetries())

	fmt.Println(attempts, err)
	// Output: 1 session is sealed
}
