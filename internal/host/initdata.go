package host

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dragonvpn-app/internal/model"
)

// ParseInitData reads the launch parameters out of a raw Telegram init
// data query string. The hash is not verified here; the backend does that
// for every request carrying the header.
func ParseInitData(raw string) (Session, error) {
	s := Session{InitData: strings.TrimSpace(raw)}
	if s.InitData == "" {
		return s, nil
	}

	values, err := url.ParseQuery(s.InitData)
	if err != nil {
		return Session{}, fmt.Errorf("parse init data: %w", err)
	}

	if u := values.Get("user"); u != "" {
		var user model.TelegramUser
		if err := json.Unmarshal([]byte(u), &user); err != nil {
			return Session{}, fmt.Errorf("parse init data user: %w", err)
		}
		s.User = &user
	}

	s.StartParam = values.Get("start_param")
	s.QueryID = values.Get("query_id")

	if ts := values.Get("auth_date"); ts != "" {
		secs, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return Session{}, fmt.Errorf("parse init data auth_date: %w", err)
		}
		s.AuthDate = time.Unix(secs, 0).UTC()
	}
	return s, nil
}
