package security

import (
	"strings"
	"testing"

	"github.com/goliatone/go-shopify-auth/core"
)

const testSecret = "test_secret_key"

func signedQuery(t *testing.T) core.AuthQuery {
	t.Helper()
	q := core.AuthQuery{
		Code:      "some code goes here",
		Timestamp: "1631290016",
		State:     "nonce-value",
		Shop:      "test-shop.myshopify.io",
	}
	digest, err := GenerateLocalHmac(q, testSecret)
	if err != nil {
		t.Fatalf("generate hmac: %v", err)
	}
	q.Hmac = digest
	return q
}

func TestCanonicalQuery_SortedWithoutHmac(t *testing.T) {
	q := core.AuthQuery{Code: "c", Hmac: "ignored", Timestamp: "1", State: "s", Shop: "shop.myshopify.com"}
	got, err := CanonicalQuery(q)
	if err != nil {
		t.Fatalf("canonical query: %v", err)
	}
	if got != "code=c&shop=shop.myshopify.com&state=s&timestamp=1" {
		t.Fatalf("unexpected canonical query %q", got)
	}

	q.Host = "aG9zdA"
	got, err = CanonicalQuery(q)
	if err != nil {
		t.Fatalf("canonical query: %v", err)
	}
	if !strings.Contains(got, "host=aG9zdA&shop=") {
		t.Fatalf("expected host between code and shop, got %q", got)
	}
}

func TestCanonicalQuery_EscapesLikeThePlatform(t *testing.T) {
	q := core.AuthQuery{Code: "a b", Timestamp: "1", State: "x'(y)*!", Shop: "shop.myshopify.com"}
	got, err := CanonicalQuery(q)
	if err != nil {
		t.Fatalf("canonical query: %v", err)
	}
	want := "code=a%20b&shop=shop.myshopify.com&state=x'(y)*!&timestamp=1"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	q = core.AuthQuery{Code: "a+b&c=d", Timestamp: "1", State: "s", Shop: "shop.myshopify.com"}
	got, err = CanonicalQuery(q)
	if err != nil {
		t.Fatalf("canonical query: %v", err)
	}
	if !strings.HasPrefix(got, "code=a%2Bb%26c%3Dd&") {
		t.Fatalf("expected reserved characters escaped, got %q", got)
	}
}

func TestValidateHmac(t *testing.T) {
	q := signedQuery(t)
	ok, err := ValidateHmac(q, testSecret)
	if err != nil || !ok {
		t.Fatalf("expected valid hmac, got ok=%v err=%v", ok, err)
	}

	mutations := map[string]func(*core.AuthQuery){
		"code":      func(q *core.AuthQuery) { q.Code += "x" },
		"timestamp": func(q *core.AuthQuery) { q.Timestamp = "1631290017" },
		"state":     func(q *core.AuthQuery) { q.State = "Nonce-value" },
		"shop":      func(q *core.AuthQuery) { q.Shop = "test-shop.myshopify.com" },
		"host":      func(q *core.AuthQuery) { q.Host = "added" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			changed := q
			mutate(&changed)
			ok, err := ValidateHmac(changed, testSecret)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok {
				t.Fatalf("expected mismatch after changing %s", name)
			}
		})
	}

	if ok, _ := ValidateHmac(q, "other secret"); ok {
		t.Fatalf("expected mismatch with another secret")
	}
}

func TestValidateHmac_MissingHmac(t *testing.T) {
	q := signedQuery(t)
	q.Hmac = ""
	_, err := ValidateHmac(q, testSecret)
	if !core.HasTextCode(err, core.ErrorInvalidHmac) {
		t.Fatalf("expected invalid hmac error, got %v", err)
	}
}

func TestWebhookHmac(t *testing.T) {
	body := []byte(`{"id":1}`)
	signature := ComputeWebhookHmac(body, testSecret)
	if !ValidateWebhookHmac(body, signature, testSecret) {
		t.Fatalf("expected webhook signature to match")
	}
	if ValidateWebhookHmac([]byte(`{"id":2}`), signature, testSecret) {
		t.Fatalf("expected mismatch for another body")
	}
	if ValidateWebhookHmac(body, "", testSecret) {
		t.Fatalf("expected empty signature to fail")
	}
}

func TestVerifier_ValidateCallback(t *testing.T) {
	verifier := NewVerifier(core.Config{APIKey: "key", APISecretKey: testSecret})
	q := signedQuery(t)

	if err := verifier.ValidateCallback(q, "nonce-value"); err != nil {
		t.Fatalf("expected valid callback, got %v", err)
	}

	cases := map[string]struct {
		query core.AuthQuery
		state string
	}{
		"state":   {query: q, state: "another-nonce"},
		"missing": {query: core.AuthQuery{Code: q.Code, Shop: q.Shop, State: q.State}, state: "nonce-value"},
		"hmac":    {query: core.AuthQuery{Code: q.Code, Hmac: strings.Repeat("0", 64), Shop: q.Shop, State: q.State, Timestamp: q.Timestamp}, state: "nonce-value"},
	}
	for name, tc := range cases {
		if err := verifier.ValidateCallback(tc.query, tc.state); !core.HasTextCode(err, core.ErrorInvalidCallback) {
			t.Fatalf("%s: expected invalid callback, got %v", name, err)
		}
	}

	badShop := core.AuthQuery{Code: "c", Timestamp: "1", State: "nonce-value", Shop: "evil.example.com"}
	digest, err := GenerateLocalHmac(badShop, testSecret)
	if err != nil {
		t.Fatalf("generate hmac: %v", err)
	}
	badShop.Hmac = digest
	if err := verifier.ValidateCallback(badShop, "nonce-value"); core.ErrorReason(err) != "shop" {
		t.Fatalf("expected shop failure, got %v", err)
	}
}
