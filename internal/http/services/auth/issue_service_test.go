package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/littlejohn/internal/cache"
	dto "github.com/dropDatabas3/littlejohn/internal/http/dto/auth"
	svc "github.com/dropDatabas3/littlejohn/internal/http/services/auth"
	"github.com/dropDatabas3/littlejohn/internal/keys"
	"github.com/dropDatabas3/littlejohn/internal/provider/discord"
	"github.com/dropDatabas3/littlejohn/internal/token"
)

// upstream is a scripted stand-in for the identity provider.
type upstream struct {
	tokenStatus  int
	userBody     string
	userStatus   int
	guildsBody   string
	guildsStatus int
}

func (u *upstream) server(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			if u.tokenStatus != 0 && u.tokenStatus/100 != 2 {
				http.Error(w, `{"error":"invalid_grant"}`, u.tokenStatus)
				return
			}
			_, _ = w.Write([]byte(`{"token_type":"Bearer","access_token":"at-1","expires_in":3600}`))
		case "/users/@me":
			if u.userStatus != 0 && u.userStatus != 200 {
				http.Error(w, "nope", u.userStatus)
				return
			}
			_, _ = w.Write([]byte(u.userBody))
		case "/users/@me/guilds":
			if u.guildsStatus != 0 && u.guildsStatus/100 != 2 {
				http.Error(w, "nope", u.guildsStatus)
				return
			}
			_, _ = w.Write([]byte(u.guildsBody))
		default:
			http.NotFound(w, r)
		}
	}))
}

func newService(t *testing.T, ts *httptest.Server) (svc.IssueService, cache.Client) {
	t.Helper()
	c := cache.NewMemory("")
	return svc.NewIssueService(svc.IssueDeps{
		Provider: discord.New("cid-1", "s3cret", ts.URL),
		Keys:     keys.NewManager(c, time.Hour),
		Minter:   token.NewMinter(time.Hour),
		Audience: "cid-1",
	}), c
}

func callbackReq() dto.CallbackRequest {
	return dto.CallbackRequest{
		Code:         "the-code",
		CodeVerifier: "the-verifier",
		RedirectURI:  "https://app.example/cb",
		GrantType:    "authorization_code",
	}
}

func TestIssueHappyPath(t *testing.T) {
	ts := (&upstream{
		userBody:   `{"id":"42","username":"robin","email":"r@x.y","verified":true}`,
		guildsBody: `[{"id":"g1","name":"A"},{"id":"g2","name":"B"}]`,
	}).server(t)
	defer ts.Close()

	service, c := newService(t, ts)
	signed, err := service.Issue(context.Background(), "https://bridge.example", callbackReq())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims := jwtv5.MapClaims{}
	if _, _, err := jwtv5.NewParser().ParseUnverified(signed, claims); err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims["iss"] != "https://bridge.example" {
		t.Fatalf("iss = %v", claims["iss"])
	}
	if claims["aud"] != "cid-1" {
		t.Fatalf("aud = %v", claims["aud"])
	}
	if claims["sub"] != "42" {
		t.Fatalf("sub = %v", claims["sub"])
	}
	if claims["email"] != "r@x.y" {
		t.Fatalf("email = %v", claims["email"])
	}
	guilds, ok := claims["guilds"].([]any)
	if !ok || len(guilds) != 2 || guilds[0] != "g1" || guilds[1] != "g2" {
		t.Fatalf("guilds = %v", claims["guilds"])
	}

	// Issuing must leave the public half published.
	if _, err := keys.NewPublisher(c).Publish(context.Background()); err != nil {
		t.Fatalf("publish after issue: %v", err)
	}
}

func TestIssueRejectsUnverified(t *testing.T) {
	ts := (&upstream{
		userBody:   `{"id":"42","username":"robin","email":"r@x.y","verified":false}`,
		guildsBody: `[]`,
	}).server(t)
	defer ts.Close()

	service, _ := newService(t, ts)
	_, err := service.Issue(context.Background(), "https://bridge.example", callbackReq())
	if !errors.Is(err, svc.ErrUnverifiedIdentity) {
		t.Fatalf("err = %v, want ErrUnverifiedIdentity", err)
	}
}

func TestIssueDegradesWithoutGuilds(t *testing.T) {
	ts := (&upstream{
		userBody:     `{"id":"42","username":"robin","email":"r@x.y","verified":true}`,
		guildsStatus: http.StatusForbidden,
	}).server(t)
	defer ts.Close()

	service, _ := newService(t, ts)
	signed, err := service.Issue(context.Background(), "https://bridge.example", callbackReq())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims := jwtv5.MapClaims{}
	if _, _, err := jwtv5.NewParser().ParseUnverified(signed, claims); err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if _, present := claims["guilds"]; present {
		t.Fatal("guilds claim must be absent when the membership fetch fails")
	}
}

func TestIssueUpstreamRejection(t *testing.T) {
	ts := (&upstream{tokenStatus: http.StatusBadRequest}).server(t)
	defer ts.Close()

	service, _ := newService(t, ts)
	_, err := service.Issue(context.Background(), "https://bridge.example", callbackReq())
	if !errors.Is(err, svc.ErrUpstream) {
		t.Fatalf("err = %v, want ErrUpstream", err)
	}
}

func TestIssueRequiresCode(t *testing.T) {
	ts := (&upstream{userBody: `{}`}).server(t)
	defer ts.Close()

	service, _ := newService(t, ts)
	req := callbackReq()
	req.Code = " "
	_, err := service.Issue(context.Background(), "https://bridge.example", req)
	if !errors.Is(err, svc.ErrMissingParam) {
		t.Fatalf("err = %v, want ErrMissingParam", err)
	}
}
