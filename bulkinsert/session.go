package bulkinsert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/clinia/bulkx/errorx"
	"github.com/clinia/bulkx/httpx"
	"github.com/clinia/bulkx/logrusx"
	"github.com/clinia/bulkx/pubsubx"
	"github.com/clinia/bulkx/retryx"
	"github.com/clinia/bulkx/tracex"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	instrumentationName = "github.com/clinia/bulkx/bulkinsert"
	componentName       = "bulkinsert.Session"

	sessionIDField = "bulk_insert.session_id"
)

type State int32

const (
	StateCreated State = iota
	StateAuthenticating
	StateStreaming
	StateAwaitingCompletion
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateAuthenticating:
		return "authenticating"
	case StateStreaming:
		return "streaming"
	case StateAwaitingCompletion:
		return "awaiting_completion"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// failureSource orders the failures of a session. The highest one is reported.
type failureSource int

const (
	failureCancelled failureSource = iota
	failureWriter
	failureResponse
	failureAborted

	failureSources
)

var (
	errQueueFull = errors.New("document queue is full")
	errSealed    = errors.New("document queue is sealed")
)

// Session streams documents to the server over a single long-lived request.
// Write may be called from many goroutines. Close ends the stream and waits for the server.
type Session struct {
	id      uuid.UUID
	client  *Client
	options Options
	l       *logrusx.Logger
	tracer  trace.Tracer
	report  func(string)

	queue    *documentQueue
	writer   *batchWriter
	poller   *completionPoller
	listener *notificationListener

	ctx    context.Context
	cancel context.CancelCauseFunc
	body   *io.PipeWriter
	group  errgroup.Group

	state       atomic.Int32
	operationID atomic.Int64
	closing     atomic.Bool

	mu       sync.Mutex
	failures [failureSources]error
	response *httpx.Response

	closeOnce sync.Once
	closeErr  error
}

// Open negotiates a single-use token and starts the bulk insert stream.
// ctx bounds the handshake only. The stream lives until Close.
func Open(ctx context.Context, client *Client, options Options, opts ...SessionOption) (_ *Session, err error) {
	if client == nil {
		return nil, errorx.InvalidArgumentErrorf("bulk insert client is required")
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	options = options.withDefaults()
	o := newSessionOptions(opts)

	m, err := newMetrics(o.meterProvider.Meter(instrumentationName))
	if err != nil {
		return nil, errorx.InternalErrorf("failed to create bulk insert metrics: %v", err).WithCause(err)
	}

	s := &Session{
		id:      uuid.New(),
		client:  client,
		options: options,
		tracer:  o.tracerProvider.Tracer(instrumentationName),
		report:  o.report,
		queue:   newDocumentQueue(QueueCapacity(options.BatchSize)),
	}
	s.l = o.l.WithField(sessionIDField, s.id.String())
	s.state.Store(int32(StateCreated))

	ctx, span, l := tracex.Instrument(ctx, s.l, s.tracer, componentName, "Open",
		trace.WithAttributes(attribute.String(sessionIDField, s.id.String())))
	defer span.End()
	defer func() {
		if err != nil {
			s.state.Store(int32(StateFailed))
			tracex.RecordError(span, err)
			l.WithError(err).Errorf("failed to open bulk insert session")
		}
	}()

	s.state.Store(int32(StateAuthenticating))
	negotiator := &tokenNegotiator{
		http:    client.http,
		url:     client.tokenURL(s.id, options),
		timeout: options.AuthTimeout,
		l:       l,
	}
	token, err := negotiator.negotiate(ctx)
	if err != nil {
		return nil, err
	}

	s.ctx, s.cancel = context.WithCancelCause(context.WithoutCancel(ctx))
	pr, pw := io.Pipe()
	s.body = pw

	if o.source != nil {
		s.listener, err = listen(s.ctx, o.source, s.id.String(), s.l, s.abort)
		if err != nil {
			s.teardown()
			return nil, errorx.UnavailableErrorf("failed to subscribe to bulk insert notifications: %v", err).WithCause(err)
		}
	}

	headers := http.Header{}
	headers.Set(SingleUseAuthTokenHeader, token)
	headers.Set("Content-Type", "application/octet-stream")

	// Only the stream waits for 100-continue, so the server can reject it before any frame is sent.
	client.http.SetExpectContinue(true)
	req, err := client.http.NewStreamRequest(s.ctx, &httpx.StreamRequest{
		Method:  http.MethodPost,
		URL:     client.bulkInsertURL(s.id, options),
		Body:    pr,
		Headers: headers,
	})
	client.http.SetExpectContinue(false)
	if err != nil {
		s.teardown()
		return nil, err
	}
	l.WithRequest(req).Debugf("streaming bulk insert documents")

	s.writer = &batchWriter{
		queue:          s.queue,
		body:           pw,
		batchSize:      options.BatchSize,
		dequeueTimeout: options.DequeueTimeout,
		metrics:        m,
		report:         s.report,
		l:              s.l,
	}
	s.poller = &completionPoller{
		client:   client,
		interval: options.PollInterval,
		timeout:  options.PollTimeout,
		l:        s.l,
	}

	s.state.Store(int32(StateStreaming))
	s.group.Go(s.write)
	s.group.Go(func() error {
		return s.receive(req)
	})

	l.Infof("bulk insert session opened")
	return s, nil
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// OperationID is the server operation id, known once the stream has been acknowledged.
func (s *Session) OperationID() int64 {
	return s.operationID.Load()
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Written is the number of documents flushed to the server so far.
func (s *Session) Written() int64 {
	return s.writer.written.Load()
}

// Write validates the document and hands it to the stream. It waits while the queue is full.
func (s *Session) Write(ctx context.Context, id string, metadata map[string]any, body map[string]any) error {
	doc, err := NewDocument(id, metadata, body)
	if err != nil {
		return err
	}
	if err := s.failure(); err != nil {
		return err
	}
	if s.closing.Load() || s.queue.Sealed() {
		return errorx.FailedPreconditionErrorf("bulk insert session %s is closed", s.id)
	}

	if s.queue.TryEnqueue(doc) {
		return nil
	}

	waitCtx, cancel := mergeContexts(ctx, s.ctx)
	defer cancel()

	err = retryx.ConstantRetry(func() error {
		if s.queue.TryEnqueue(doc) {
			return nil
		}
		if s.queue.Sealed() {
			return retryx.Permanent(errSealed)
		}
		return errQueueFull
	},
		retryx.WithInterval(s.options.EnqueueRetryInterval),
		retryx.WithUnlimitedRetries(),
		retryx.WithContext(waitCtx),
	)
	if err == nil {
		return nil
	}

	if ferr := s.failure(); ferr != nil {
		return ferr
	}
	if errors.Is(err, errSealed) {
		return errorx.FailedPreconditionErrorf("bulk insert session %s is closed", s.id)
	}
	if ctx.Err() != nil {
		cerr := errorx.CancelledErrorf("write of document %s was cancelled: %v", id, ctx.Err()).WithCause(ctx.Err())
		s.fail(failureCancelled, cerr)
		return cerr
	}

	return errorx.InternalErrorf("failed to enqueue document %s: %v", id, err).WithCause(err)
}

// Close seals the stream, waits for the server to acknowledge it and then for the operation to complete.
// Later calls return the result of the first one.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.close(ctx)
	})
	return s.closeErr
}

func (s *Session) close(ctx context.Context) (err error) {
	s.closing.Store(true)

	ctx, span, l := tracex.Instrument(ctx, s.l, s.tracer, componentName, "Close",
		trace.WithAttributes(attribute.String(sessionIDField, s.id.String())))
	defer span.End()
	defer func() {
		s.teardown()
		if err != nil {
			s.state.Store(int32(StateFailed))
			tracex.RecordError(span, err)
			l.WithError(err).Errorf("bulk insert session failed")
			return
		}
		s.state.Store(int32(StateClosed))
		span.SetAttributes(attribute.Int64("bulk_insert.operation_id", s.OperationID()))
		l.Infof("bulk insert session closed after writing %d documents", s.Written())
	}()

	if s.failure() == nil {
		sealCtx, cancel := mergeContexts(ctx, s.ctx)
		err := s.queue.Seal(sealCtx)
		cancel()
		if err != nil && s.failure() == nil {
			s.fail(failureCancelled, errorx.CancelledErrorf("closing bulk insert session %s was cancelled: %v", s.id, ctx.Err()).WithCause(ctx.Err()))
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- s.group.Wait()
	}()

	var groupErr error
	select {
	case groupErr = <-done:
	case <-ctx.Done():
		s.fail(failureCancelled, errorx.CancelledErrorf("closing bulk insert session %s was cancelled: %v", s.id, ctx.Err()).WithCause(ctx.Err()))
		groupErr = <-done
	}
	if err := s.failure(); err != nil {
		return err
	}
	if groupErr != nil {
		return groupErr
	}

	s.state.Store(int32(StateAwaitingCompletion))
	operationID, err := s.parseOperationID()
	if err != nil {
		return err
	}
	s.operationID.Store(operationID)
	l.Debugf("stream acknowledged as operation %d", operationID)

	pollCtx, cancel := mergeContexts(ctx, s.ctx)
	defer cancel()
	if err := s.poller.wait(pollCtx, operationID); err != nil {
		if ferr := s.failure(); ferr != nil {
			return ferr
		}
		if ctx.Err() != nil {
			return errorx.CancelledErrorf("waiting for operation %d was cancelled: %v", operationID, ctx.Err()).WithCause(ctx.Err())
		}
		return err
	}

	// An error notification can land while polling.
	if err := s.failure(); err != nil {
		return err
	}

	s.report("Done writing to server")
	return nil
}

// write runs the batch writer on the session context.
func (s *Session) write() error {
	err := s.writer.run(s.ctx)
	if err == nil {
		return nil
	}
	if s.ctx.Err() != nil {
		// The session already failed, this is a consequence.
		return context.Cause(s.ctx)
	}
	s.fail(failureWriter, err)
	return err
}

// receive sends the stream request and keeps the acknowledgement.
func (s *Session) receive(req *http.Request) (err error) {
	defer tracex.RecoverAsError(s.l, &err, "panic while receiving the bulk insert response")

	res, err := s.client.http.DoStream(req)
	if err != nil {
		if s.ctx.Err() != nil {
			return context.Cause(s.ctx)
		}
		err = errorx.UnavailableErrorf("bulk insert stream to %s failed: %v", s.client.BaseURL(), err).WithCause(err)
		s.fail(failureResponse, err)
		return err
	}

	if !res.IsSuccess() {
		err := responseError(res)
		s.fail(failureResponse, err)
		return err
	}

	s.mu.Lock()
	s.response = res
	s.mu.Unlock()

	return nil
}

func (s *Session) parseOperationID() (int64, error) {
	s.mu.Lock()
	res := s.response
	s.mu.Unlock()

	if res == nil {
		return 0, errorx.InternalErrorf("bulk insert stream ended without a response")
	}
	id := gjson.GetBytes(res.Body, "OperationId")
	if !gjson.ValidBytes(res.Body) || id.Type != gjson.Number {
		return 0, errorx.InternalErrorf("bulk insert response has no operation id: %s", string(res.Body))
	}

	return id.Int(), nil
}

// abort fails the session on a server side error notification.
func (s *Session) abort(n *pubsubx.Notification) {
	s.fail(failureAborted, errorx.AbortedErrorf("bulk insert operation %s failed on the server: %s", n.OperationID, n.Message))
}

// fail records err and stops the stream. The first failure of each source is kept.
func (s *Session) fail(source failureSource, err error) {
	s.mu.Lock()
	if s.failures[source] == nil {
		s.failures[source] = err
	}
	s.mu.Unlock()

	s.state.Store(int32(StateFailed))
	s.cancel(err)
	s.body.CloseWithError(err)
}

// failure is the most relevant recorded failure, nil while the session is healthy.
func (s *Session) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := failureSources - 1; i >= 0; i-- {
		if s.failures[i] != nil {
			return s.failures[i]
		}
	}
	return nil
}

func (s *Session) teardown() {
	s.listener.close()
	s.cancel(nil)
	if s.body != nil {
		_ = s.body.Close()
	}
}

func responseError(res *httpx.Response) error {
	msg := string(res.Body)
	if m := gjson.GetBytes(res.Body, "Message"); gjson.ValidBytes(res.Body) && m.String() != "" {
		msg = m.String()
	}

	switch res.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errorx.UnauthenticatedErrorf("%s: server answered %d: %s", anonymousAuthGuidance, res.StatusCode, msg)
	default:
		return errorx.UnavailableErrorf("bulk insert failed with status %d: %s", res.StatusCode, msg)
	}
}

// mergeContexts returns a context done as soon as parent or other is done.
func mergeContexts(parent, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	stop := context.AfterFunc(other, func() {
		cancel(context.Cause(other))
	})

	return ctx, func() {
		stop()
		cancel(context.Canceled)
	}
}
