package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolld/internal/signup/models"
	"enrolld/pkg/domain"
	"enrolld/pkg/platform/sentinel"
)

type providerStub struct {
	tokenRequests atomic.Int64
	lastAuth      string
	lastBody      []byte
	accountStatus int
	accountBody   string
}

func newProviderStub(t *testing.T) (*providerStub, *Client) {
	t.Helper()

	stub := &providerStub{accountStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		stub.tokenRequests.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "enrolld", r.Form.Get("client_id"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "opaque-admin-token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/admin/", func(w http.ResponseWriter, r *http.Request) {
		stub.lastAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		stub.lastBody = body
		w.WriteHeader(stub.accountStatus)
		if stub.accountBody != "" {
			_, _ = w.Write([]byte(stub.accountBody))
		} else if stub.accountStatus < 300 {
			_, _ = w.Write([]byte(`{"id":"acct-1"}`))
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseURL:      server.URL,
		ClientID:     "enrolld",
		ClientSecret: "secret",
	})
	require.NoError(t, err)
	return stub, client
}

func TestCreateAccountSendsBearerAndOmitsEmptyPhone(t *testing.T) {
	stub, client := newProviderStub(t)

	id, err := client.CreateAccount(context.Background(), models.ProviderAccount{
		Email:       "jane@example.com",
		MemberID:    domain.MemberID("MSW12345678901"),
		FirstName:   "Jane",
		LastName:    "Doe",
		DateOfBirth: "1990-04-01",
		Groups:      []domain.MembershipGroup{domain.GroupStandard},
	})
	require.NoError(t, err)
	assert.Equal(t, "acct-1", id)
	assert.Equal(t, "Bearer opaque-admin-token", stub.lastAuth)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(stub.lastBody, &sent))
	assert.Equal(t, "MSW12345678901", sent["member_id"])
	assert.NotContains(t, sent, "phone_number")
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	stub, client := newProviderStub(t)

	ctx := context.Background()
	require.NoError(t, client.SetCredential(ctx, "jane@example.com", "hash"))
	require.NoError(t, client.AddToGroup(ctx, "jane@example.com", domain.GroupPremium))
	assert.Equal(t, int64(1), stub.tokenRequests.Load())
}

func TestAccountByEmailMapsStatuses(t *testing.T) {
	stub, client := newProviderStub(t)
	ctx := context.Background()

	stub.accountStatus = http.StatusNotFound
	_, err := client.AccountByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	stub.accountStatus = http.StatusConflict
	err = client.AddToGroup(ctx, "jane@example.com", domain.GroupPremium)
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	stub.accountStatus = http.StatusBadGateway
	err = client.SetCredential(ctx, "jane@example.com", "hash")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}

func TestAccountByEmailDecodesPayload(t *testing.T) {
	stub, client := newProviderStub(t)
	stub.accountBody = `{
		"email": "jane@example.com",
		"member_id": "MSW12345678901",
		"first_name": "Jane",
		"last_name": "Doe",
		"phone_number": "+447700900123",
		"groups": ["standard-members", "newsletter-subscribers"]
	}`

	account, err := client.AccountByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.MemberID("MSW12345678901"), account.MemberID)
	assert.Equal(t, "+447700900123", account.PhoneNumber)
	assert.Equal(t, []domain.MembershipGroup{domain.GroupStandard, domain.GroupNewsletter}, account.Groups)
}

func TestExpiryOfPrefersJWTClaim(t *testing.T) {
	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)

	// expires_in disagrees with the claim; the claim wins.
	got := expiryOf(signed, 3600)
	assert.Equal(t, exp.Unix(), got.Unix())

	// Opaque tokens fall back to expires_in.
	got = expiryOf("not-a-jwt", 60)
	assert.WithinDuration(t, time.Now().Add(time.Minute), got, 2*time.Second)
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	_, err = New(Config{BaseURL: "http://localhost"})
	require.Error(t, err)
}
