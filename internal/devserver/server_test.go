package devserver_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/lazypandaa/gramvaani-client/adapters/backend"
	"github.com/lazypandaa/gramvaani-client/domain/entities"
	"github.com/lazypandaa/gramvaani-client/internal/devserver"
)

type tokenBox struct {
	mu    sync.Mutex
	token string
}

func (b *tokenBox) Token() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.token
}

func (b *tokenBox) set(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

func newTestSetup(t *testing.T) (*backend.Client, *tokenBox) {
	t.Helper()
	server := devserver.New(zaptest.NewLogger(t), false)
	ts := httptest.NewServer(server.Echo())
	t.Cleanup(ts.Close)

	tokens := &tokenBox{}
	client := backend.NewClient(backend.Config{
		BaseURL:        ts.URL,
		Timeout:        5 * time.Second,
		MaxRetries:     1,
		RetryBaseDelay: time.Millisecond,
	}, tokens, zaptest.NewLogger(t))
	return client, tokens
}

func signup(t *testing.T, client *backend.Client, tokens *tokenBox, email string) {
	t.Helper()
	token, err := client.Signup(context.Background(), entities.SignupProfile{
		Email:    email,
		Password: "secret",
		Language: "hi",
		Location: "Pune",
	})
	if err != nil {
		t.Fatal(err)
	}
	tokens.set(token)
}

func TestSignupLoginProfileFlow(t *testing.T) {
	client, tokens := newTestSetup(t)
	signup(t, client, tokens, "farmer@gramvaani.in")

	user, err := client.Me(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if user.Email != "farmer@gramvaani.in" || user.Language != "hi" {
		t.Errorf("unexpected profile %+v", user)
	}

	// Duplicate registration is rejected with the canonical message.
	_, err = client.Signup(context.Background(), entities.SignupProfile{
		Email: "farmer@gramvaani.in", Password: "x", Language: "hi", Location: "Pune",
	})
	var apiErr *entities.APIError
	if !errors.As(err, &apiErr) || apiErr.Detail != "Email already registered" {
		t.Errorf("expected duplicate-email detail, got %v", err)
	}

	// Fresh login with the right password works, wrong password does not.
	if _, err := client.Login(context.Background(), entities.Credentials{Email: "farmer@gramvaani.in", Password: "secret"}); err != nil {
		t.Fatal(err)
	}
	_, err = client.Login(context.Background(), entities.Credentials{Email: "farmer@gramvaani.in", Password: "wrong"})
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 {
		t.Errorf("expected 401 for bad credentials, got %v", err)
	}

	updated, err := client.UpdateProfile(context.Background(), entities.User{Language: "en", Location: "Nagpur"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Language != "en" || updated.Location != "Nagpur" {
		t.Errorf("unexpected updated profile %+v", updated)
	}
}

func TestProtectedEndpointsRejectMissingToken(t *testing.T) {
	client, _ := newTestSetup(t)
	_, err := client.Me(context.Background())
	if !errors.Is(err, entities.ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
}

func TestQueriesAndHistory(t *testing.T) {
	client, tokens := newTestSetup(t)
	signup(t, client, tokens, "farmer@gramvaani.in")

	resp, err := client.CropPrices(context.Background(), "wheat", "Pune", "hi")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.AnswerText, "wheat") || !strings.Contains(resp.AnswerText, "2000") {
		t.Errorf("unexpected crop answer %q", resp.AnswerText)
	}

	if _, err := client.Weather(context.Background(), "Nashik", "hi"); err != nil {
		t.Fatal(err)
	}
	if _, err := client.GovSchemes(context.Background(), "irrigation", "hi"); err != nil {
		t.Fatal(err)
	}
	if resp, err = client.ProcessText(context.Background(), "when to sow wheat", "hi"); err != nil {
		t.Fatal(err)
	}
	if resp.Transcript != "when to sow wheat" {
		t.Errorf("text queries echo the question as transcript, got %q", resp.Transcript)
	}

	records, err := client.UserQueries(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(records))
	}
	types := map[string]bool{}
	for _, r := range records {
		types[r.Type] = true
	}
	for _, want := range []string{"crop", "weather", "scheme", "text"} {
		if !types[want] {
			t.Errorf("history missing %q entry", want)
		}
	}
}

func TestLocationEndpoints(t *testing.T) {
	client, _ := newTestSetup(t)

	location, err := client.Location(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if location == "" {
		t.Error("location must not be empty")
	}

	address, err := client.ReverseGeocode(context.Background(), 18.5204, 73.8567)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(address, "18.5204") {
		t.Errorf("unexpected address %q", address)
	}
}
