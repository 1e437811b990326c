// Package push delivers Web Push notifications to users who are not
// currently connected. Every push is best effort; failures are logged and
// dropped, and dead subscriptions are pruned on 404/410.
package push

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/chathub/internal/logger"
	"github.com/chathub/internal/observability"
)

const (
	maxSubsPerUser = 10
	sendTimeout    = 10 * time.Second
)

// Subscription is a browser push subscription as delivered by the client.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Service keeps per-username subscriptions in memory and sends signed Web
// Push messages. A nil *Service is a no-op, so callers never need to branch
// on whether push is configured.
type Service struct {
	vapid *webpush.Options

	mu   sync.Mutex
	subs map[string][]Subscription
}

// NewService returns a Service signing with keys, or nil when keys are
// absent (push disabled).
func NewService(keys *VAPIDKeys) *Service {
	if keys == nil || keys.PublicKey == "" || keys.PrivateKey == "" {
		return nil
	}
	return &Service{
		vapid: &webpush.Options{
			Subscriber:      "chathub-push",
			VAPIDPublicKey:  keys.PublicKey,
			VAPIDPrivateKey: keys.PrivateKey,
			TTL:             30,
		},
		subs: make(map[string][]Subscription),
	}
}

// PublicKey returns the VAPID public key handed to browsers at subscribe
// time, or "" when push is disabled.
func (s *Service) PublicKey() string {
	if s == nil {
		return ""
	}
	return s.vapid.VAPIDPublicKey
}

// Subscribe stores sub for username, replacing a subscription with the same
// endpoint and keeping at most maxSubsPerUser per user (oldest dropped).
func (s *Service) Subscribe(username string, sub Subscription) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]Subscription, 0, len(s.subs[username])+1)
	for _, existing := range s.subs[username] {
		if existing.Endpoint != sub.Endpoint {
			kept = append(kept, existing)
		}
	}
	kept = append(kept, sub)
	if len(kept) > maxSubsPerUser {
		kept = kept[len(kept)-maxSubsPerUser:]
	}
	s.subs[username] = kept
}

// Unsubscribe removes the subscription with the given endpoint.
func (s *Service) Unsubscribe(username, endpoint string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(username, endpoint)
}

func (s *Service) removeLocked(username, endpoint string) {
	kept := s.subs[username][:0]
	for _, existing := range s.subs[username] {
		if existing.Endpoint != endpoint {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		delete(s.subs, username)
	} else {
		s.subs[username] = kept
	}
}

// Notify sends a notification to every subscription of username. It spawns
// a goroutine and returns immediately; delivery is fire-and-forget.
func (s *Service) Notify(ctx context.Context, username, title, body string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	subs := make([]Subscription, len(s.subs[username]))
	copy(subs, s.subs[username])
	s.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]string{"title": title, "body": body})
	if err != nil {
		logger.Errorf("push payload encode: %v", err)
		return
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		defer cancel()
		for i := range subs {
			sub := &subs[i]
			wpSub := &webpush.Subscription{
				Endpoint: sub.Endpoint,
				Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
			}
			resp, err := webpush.SendNotificationWithContext(sendCtx, payload, wpSub, s.vapid)
			if err != nil {
				observability.IncWebPush("error")
				logger.Errorf("push send user=%s: %v", username, err)
				continue
			}
			resp.Body.Close()
			if resp.StatusCode == 410 || resp.StatusCode == 404 {
				observability.IncWebPush("gone")
				s.mu.Lock()
				s.removeLocked(username, sub.Endpoint)
				s.mu.Unlock()
				continue
			}
			observability.IncWebPush("ok")
		}
	}()
}
