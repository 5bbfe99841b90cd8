// Package notificator delivers operator alerts. Delivery is best effort:
// a failed recipient is logged and counted, never retried.
package notificator

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/core-coin/rota/internal/metrics"
	"github.com/core-coin/rota/pkg/logger"
)

// Sender delivers a text message to a Telegram chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Recipients lists the operators alerts go to.
type Recipients interface {
	IDs() []int64
}

type delivery struct {
	ctx  context.Context
	send func(ctx context.Context) error
	to   string
	wg   *sync.WaitGroup
}

type Notificator struct {
	logger *logger.Logger

	sender     Sender
	recipients Recipients
	pool       *ants.PoolWithFunc

	EmailNotificator *EmailNotificator
}

// NewNotificator creates a notificator fanning out through a pool of workers.
// emailNotif may be nil.
func NewNotificator(logger *logger.Logger, sender Sender, recipients Recipients, workers int, emailNotif *EmailNotificator) (*Notificator, error) {
	n := &Notificator{
		logger:           logger.With("component", "notificator"),
		sender:           sender,
		recipients:       recipients,
		EmailNotificator: emailNotif,
	}
	pool, err := ants.NewPoolWithFunc(workers, func(payload interface{}) {
		if d, ok := payload.(*delivery); ok {
			n.deliver(d)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create notification pool: %w", err)
	}
	n.pool = pool
	return n, nil
}

// Close releases the worker pool.
func (n *Notificator) Close() {
	n.pool.Release()
}

// safeCall runs a function with panic recovery (synchronous, no goroutine spawning)
func (n *Notificator) safeCall(fn func() error, context string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Errorw("Function panicked",
				"context", context,
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (n *Notificator) deliver(d *delivery) {
	defer d.wg.Done()
	err := n.safeCall(func() error { return d.send(d.ctx) }, d.to)
	metrics.DefaultMetrics.RecordNotification(err)
	if err != nil {
		n.logger.Warnw("Failed to deliver notification", "to", d.to, "error", err)
	}
}

// dispatch hands every delivery to the pool and waits until all are done.
func (n *Notificator) dispatch(deliveries []*delivery) {
	var wg sync.WaitGroup
	for _, d := range deliveries {
		wg.Add(1)
		d.wg = &wg
		if err := n.pool.Invoke(d); err != nil {
			wg.Done()
			metrics.DefaultMetrics.RecordNotification(err)
			n.logger.Errorw("Failed to queue notification", "to", d.to, "error", err)
		}
	}
	wg.Wait()
}

func (n *Notificator) telegramDeliveries(ctx context.Context, operatorIDs []int64, message string) []*delivery {
	deliveries := make([]*delivery, 0, len(operatorIDs))
	for _, id := range operatorIDs {
		chatID := id
		deliveries = append(deliveries, &delivery{
			ctx:  ctx,
			to:   fmt.Sprintf("telegram:%d", chatID),
			send: func(ctx context.Context) error { return n.sender.SendMessage(ctx, chatID, message) },
		})
	}
	return deliveries
}

// Notify sends message to each operator. One failing operator does not
// hold up the others.
func (n *Notificator) Notify(ctx context.Context, operatorIDs []int64, message string) {
	n.dispatch(n.telegramDeliveries(ctx, operatorIDs, message))
}

// NotifyAdmins sends message to every configured operator and, when email
// alerts are set up, to the admin mailboxes.
func (n *Notificator) NotifyAdmins(ctx context.Context, message string) {
	ids := n.recipients.IDs()
	if len(ids) == 0 && n.EmailNotificator == nil {
		n.logger.Warnw("No operators configured, dropping alert", "message", message)
		return
	}

	deliveries := n.telegramDeliveries(ctx, ids, message)
	if n.EmailNotificator != nil {
		for _, addr := range n.EmailNotificator.Recipients() {
			to := addr
			deliveries = append(deliveries, &delivery{
				ctx:  ctx,
				to:   "email:" + to,
				send: func(context.Context) error { return n.EmailNotificator.SendNotification(to, message) },
			})
		}
	}
	n.dispatch(deliveries)
}
