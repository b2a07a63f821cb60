// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
	"github.com/taibuivan/shiftsphere/internal/platform/mailer"
	"github.com/taibuivan/shiftsphere/internal/platform/metrics"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
	"github.com/taibuivan/shiftsphere/internal/users/auth"
)

// # Collaborator Fakes

type notification struct {
	AccountID string
	Event     string
	Payload   any
}

// recordingNotifier keeps every notification in order.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) Notify(_ context.Context, accountID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{AccountID: accountID, Event: event, Payload: payload})
}

func (n *recordingNotifier) Events(accountID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	var events []string
	for _, e := range n.events {
		if e.AccountID == accountID {
			events = append(events, e.Event)
		}
	}
	return events
}

// recordingSender captures outgoing mail; err makes every send fail.
type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

// LinkToken extracts the plaintext token of the last email linking to path.
func (s *recordingSender) LinkToken(t *testing.T, path string) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	marker := "/" + path + "/"
	for i := len(s.sent) - 1; i >= 0; i-- {
		_, rest, found := strings.Cut(s.sent[i].Text, marker)
		if found && len(rest) >= 2*sec.OneTimeTokenLength {
			return rest[:2*sec.OneTimeTokenLength]
		}
	}
	t.Fatalf("no email linking to %s", path)
	return ""
}

// fakeGoogle maps presented tokens to profiles.
type fakeGoogle map[string]*auth.ExternalProfile

func (g fakeGoogle) Verify(_ context.Context, token, kind string) (*auth.ExternalProfile, error) {
	profile, ok := g[kind+":"+token]
	if !ok {
		return nil, apperr.Unauthorized(auth.MsgInvalidGoogleID)
	}
	return profile, nil
}

// fakeClock is a settable clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// # Environment

type testEnv struct {
	store    *auth.MemoryAccountStore
	codec    *sec.TokenCodec
	notifier *recordingNotifier
	mail     *recordingSender
	google   fakeGoogle
	registry *prometheus.Registry
	sessions *auth.SessionManager
	service  *auth.Service
}

func newTestEnv(t *testing.T, configure ...func(*auth.ServiceConfig)) *testEnv {
	t.Helper()

	codec, err := sec.NewTokenCodec(sec.CodecConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "shiftsphere.test",
		Audience:      "shiftsphere-test",
	})
	require.NoError(t, err)

	hasher, err := sec.NewPasswordHasher(sec.HashBcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	config := auth.ServiceConfig{ClientURL: "https://app.shiftsphere.test", RevealUnknownEmail: true}
	for _, apply := range configure {
		apply(&config)
	}

	env := &testEnv{
		store:    auth.NewMemoryAccountStore(),
		codec:    codec,
		notifier: &recordingNotifier{},
		mail:     &recordingSender{},
		google:   fakeGoogle{},
		registry: prometheus.NewRegistry(),
	}
	recorder := metrics.New(env.registry)
	env.sessions = auth.NewSessionManager(env.store, codec, env.notifier, recorder)
	env.service = auth.NewService(env.store, env.sessions, hasher, env.google, env.mail, env.notifier, recorder, config)
	return env
}

// register enrolls a local account and returns the sign-in result.
func (env *testEnv) register(t *testing.T, email string, role sec.Role) *auth.AuthResult {
	t.Helper()
	result, err := env.service.Register(context.Background(), auth.RegisterInput{
		Email:            email,
		Password:         "password123",
		Name:             "Alice Worker",
		NationalIDNumber: "NID-" + email,
		Role:             role,
	})
	require.NoError(t, err)
	return result
}

func (env *testEnv) sessionCount(t *testing.T, accountID string) int {
	t.Helper()
	count, err := env.store.CountSessions(context.Background(), accountID)
	require.NoError(t, err)
	return count
}

// counter sums every series of a counter family in the test registry.
func (env *testEnv) counter(t *testing.T, name string) float64 {
	t.Helper()
	families, err := env.registry.Gather()
	require.NoError(t, err)

	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

// appStatus returns the HTTP status carried by err, or 0 for non-AppErrors.
func appStatus(err error) int {
	if appError := apperr.As(err); appError != nil {
		return appError.HTTPStatus
	}
	return 0
}
