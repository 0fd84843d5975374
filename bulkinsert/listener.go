package bulkinsert

import (
	"context"

	"github.com/clinia/bulkx/logrusx"
	"github.com/clinia/bulkx/pubsubx"
)

// notificationListener forwards the error notifications of one operation to onError.
type notificationListener struct {
	sub pubsubx.Subscription
	l   *logrusx.Logger
}

func listen(ctx context.Context, source pubsubx.Source, operationID string, l *logrusx.Logger, onError func(n *pubsubx.Notification)) (*notificationListener, error) {
	nl := &notificationListener{l: l}
	sub, err := source.Subscribe(ctx, operationID, func(_ context.Context, n *pubsubx.Notification) {
		if n.IsError() {
			l.WithField("notification_type", n.Type).Warnf("server reported a bulk insert failure: %s", n.Message)
			onError(n)
			return
		}
		l.WithField("notification_type", n.Type).Infof("received bulk insert notification")
	})
	if err != nil {
		return nil, err
	}
	nl.sub = sub

	return nl, nil
}

func (nl *notificationListener) close() {
	if nl == nil || nl.sub == nil {
		return
	}
	if err := nl.sub.Close(); err != nil {
		nl.l.WithError(err).Warnf("failed to close notification subscription")
	}
}
