package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBadInitData = errors.New("init data verification failed")
	ErrStaleAuth   = errors.New("init data auth date too old")
)

// Identity is a verified player identity extracted from Telegram initData.
type Identity struct {
	PlayerID    string
	DisplayName string
	ChatID      *int64
}

type initDataUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// VerifyInitData checks a Telegram WebApp initData payload against the bot
// token using the documented shared-secret scheme: the hash field must equal
// HMAC-SHA256 of the sorted key=value lines, keyed by HMAC("WebAppData",
// botToken). maxAge of 0 disables the freshness check.
func VerifyInitData(initData, botToken string, maxAge time.Duration, now time.Time) (*Identity, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, ErrBadInitData
	}
	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, ErrBadInitData
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}
	checkString := strings.Join(lines, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	wantHash := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return nil, ErrBadInitData
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return nil, ErrBadInitData
		}
		if now.UTC().Sub(time.Unix(authDate, 0)) > maxAge {
			return nil, ErrStaleAuth
		}
	}

	var user initDataUser
	if raw := values.Get("user"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			return nil, ErrBadInitData
		}
	}
	if user.ID == 0 {
		return nil, ErrBadInitData
	}

	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}
	chatID := user.ID
	return &Identity{
		PlayerID:    strconv.FormatInt(user.ID, 10),
		DisplayName: name,
		ChatID:      &chatID,
	}, nil
}
