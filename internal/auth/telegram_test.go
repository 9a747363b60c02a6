package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"
)

const testBotToken = "12345:test-token"

// signInitData builds a payload the same way the Telegram client does.
func signInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	hash := hex.EncodeToString(mac.Sum(nil))

	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", hash)
	return values.Encode()
}

func validFields(now time.Time) map[string]string {
	return map[string]string{
		"auth_date": fmt.Sprintf("%d", now.Unix()),
		"user":      `{"id":777,"first_name":"Ada","last_name":"L","username":"ada"}`,
	}
}

func TestVerifyInitDataAccepts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := signInitData(t, testBotToken, validFields(now))

	identity, err := VerifyInitData(payload, testBotToken, time.Hour, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.PlayerID != "777" {
		t.Fatalf("player id = %q, want 777", identity.PlayerID)
	}
	if identity.DisplayName != "Ada L" {
		t.Fatalf("display name = %q, want Ada L", identity.DisplayName)
	}
	if identity.ChatID == nil || *identity.ChatID != 777 {
		t.Fatalf("chat id = %v, want 777", identity.ChatID)
	}
}

func TestVerifyInitDataRejectsTamperedPayload(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := signInitData(t, testBotToken, validFields(now))
	tampered := strings.Replace(payload, "777", "778", 1)

	if _, err := VerifyInitData(tampered, testBotToken, time.Hour, now); !errors.Is(err, ErrBadInitData) {
		t.Fatalf("err = %v, want ErrBadInitData", err)
	}
}

func TestVerifyInitDataRejectsWrongToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := signInitData(t, "999:other-token", validFields(now))

	if _, err := VerifyInitData(payload, testBotToken, time.Hour, now); !errors.Is(err, ErrBadInitData) {
		t.Fatalf("err = %v, want ErrBadInitData", err)
	}
}

func TestVerifyInitDataRejectsMissingHash(t *testing.T) {
	if _, err := VerifyInitData("auth_date=1&user=%7B%22id%22%3A1%7D", testBotToken, 0, time.Now()); !errors.Is(err, ErrBadInitData) {
		t.Fatalf("err = %v, want ErrBadInitData", err)
	}
}

func TestVerifyInitDataRejectsStaleAuth(t *testing.T) {
	signedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload := signInitData(t, testBotToken, validFields(signedAt))

	if _, err := VerifyInitData(payload, testBotToken, time.Hour, signedAt.Add(2*time.Hour)); !errors.Is(err, ErrStaleAuth) {
		t.Fatalf("err = %v, want ErrStaleAuth", err)
	}

	// maxAge 0 disables the freshness check entirely.
	if _, err := VerifyInitData(payload, testBotToken, 0, signedAt.Add(100*time.Hour)); err != nil {
		t.Fatalf("with freshness disabled: %v", err)
	}
}

func TestVerifyInitDataFallsBackToUsername(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fields := map[string]string{
		"auth_date": fmt.Sprintf("%d", now.Unix()),
		"user":      `{"id":5,"username":"ghost"}`,
	}
	payload := signInitData(t, testBotToken, fields)

	identity, err := VerifyInitData(payload, testBotToken, time.Hour, now)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.DisplayName != "ghost" {
		t.Fatalf("display name = %q, want username fallback", identity.DisplayName)
	}
}
