package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"solar-monitor-backend/internal/model"
	"solar-monitor-backend/internal/store"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real implementation using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans access-request alerts out to device admins' push
// subscriptions. Jobs carry the access-request id.
type WorkerPool struct {
	size    int
	jobs    chan int64
	store   store.Store
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case requestID := <-wp.jobs:
			wp.notifyAdmins(ctx, requestID)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a job to the worker pool.
func (wp *WorkerPool) Dispatch(requestID int64) {
	wp.jobs <- requestID
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

// SetSender replaces the push transport, for testing.
func (wp *WorkerPool) SetSender(s Sender) {
	wp.sender = s
}

// notifyAdmins pushes an "access requested" alert to every subscription
// of the device's admin. Everything here is best-effort: the request
// itself is already persisted.
func (wp *WorkerPool) notifyAdmins(ctx context.Context, requestID int64) {
	req, err := wp.store.AccessRequestDetail(ctx, requestID)
	if err != nil {
		log.Printf("Error loading access request %d: %v", requestID, err)
		return
	}

	subs, err := wp.store.AdminSubscriptions(ctx, req.DeviceID)
	if err != nil {
		log.Printf("Error fetching admin subscriptions for device %d: %v", req.DeviceID, err)
		return
	}
	if len(subs) == 0 {
		return
	}

	requester := req.Name
	if requester == "" {
		requester = req.Phone
	}
	payload, err := json.Marshal(map[string]any{
		"title":      "Device access request",
		"body":       requester + " requested access to " + req.DeviceName,
		"request_id": req.RequestID,
		"device_id":  req.DeviceID,
	})
	if err != nil {
		log.Printf("Error building push payload for request %d: %v", requestID, err)
		return
	}

	log.Printf("Sending %d push notifications for request %d", len(subs), requestID)
	for _, sub := range subs {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions are reaped on 410.
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
