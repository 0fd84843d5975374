package bulkinsert

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/httpx"
	"github.com/clinia/bulkx/logrusx"
	"github.com/clinia/bulkx/retryx"
	"github.com/tidwall/gjson"
)

var errOperationPending = errors.New("operation is still running")

// completionPoller waits for the server to report the end of an operation.
type completionPoller struct {
	client   *Client
	interval time.Duration
	timeout  time.Duration
	l        *logrusx.Logger
}

// wait polls the operation status until it completes, the poll timeout expires or ctx is done.
func (p *completionPoller) wait(ctx context.Context, operationID int64) error {
	pollCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	attempts := 0
	err := retryx.ConstantRetry(func() error {
		attempts++
		completed, err := p.completed(pollCtx, operationID)
		if err != nil {
			if pollCtx.Err() != nil {
				return pollCtx.Err()
			}
			return retryx.Permanent(err)
		}
		if !completed {
			return errOperationPending
		}
		return nil
	},
		retryx.WithInterval(p.interval),
		retryx.WithUnlimitedRetries(),
		retryx.WithContext(pollCtx),
	)
	if err == nil {
		p.l.Debugf("operation %d completed after %d status checks", operationID, attempts)
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if pollCtx.Err() != nil {
		return errorx.DeadlineExceededErrorf("operation %d did not complete within %s", operationID, p.timeout).WithCause(pollCtx.Err())
	}

	return err
}

func (p *completionPoller) completed(ctx context.Context, operationID int64) (bool, error) {
	res, err := p.client.http.MakeHTTPRequest(ctx, &httpx.Request{
		Method: http.MethodGet,
		URL:    p.client.operationStatusURL(operationID),
	})
	if err != nil {
		return false, errorx.UnavailableErrorf("failed to get the status of operation %d: %v", operationID, err).WithCause(err)
	}

	// The server forgets finished operations.
	if res.StatusCode == http.StatusNotFound || len(res.Body) == 0 {
		return true, nil
	}
	if !res.IsSuccess() {
		return false, errorx.UnavailableErrorf("status of operation %d answered %d: %s", operationID, res.StatusCode, string(res.Body))
	}
	if !gjson.ValidBytes(res.Body) {
		return false, errorx.InternalErrorf("status of operation %d is not valid json", operationID)
	}

	return gjson.GetBytes(res.Body, "Completed").Bool(), nil
}
