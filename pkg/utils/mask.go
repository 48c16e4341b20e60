package utils

import (
	"net/url"
	"regexp"
)

var dsnPasswordRegex = regexp.MustCompile(`(:)([^:@/]+)(@)`)

// MaskDSN hides the password portion of a user:password@host string.
func MaskDSN(dsn string) string {
	return dsnPasswordRegex.ReplaceAllString(dsn, ":***@")
}

// MaskURL hides the password of a parsed connection URL (amqp, nats, redis,
// postgres). Unparsable input falls back to MaskDSN.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return MaskDSN(raw)
	}
	if _, ok := u.User.Password(); !ok {
		return raw
	}
	u.User = url.UserPassword(u.User.Username(), "xxxxx")
	return u.String()
}
