package schema

import (
	"net"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = time.RFC3339
)

// formatCheckers maps string format names to their validators.
var formatCheckers = map[string]func(string) bool{
	"email":     isEmail,
	"uuid":      isUUID,
	"date":      isDate,
	"datetime":  isDateTime,
	"date-time": isDateTime,
	"uri":       isURI,
	"url":       isURI,
	"ipv4":      isIPv4,
}

// KnownFormat reports whether format has a validator.
func KnownFormat(format string) bool {
	_, ok := formatCheckers[strings.ToLower(format)]
	return ok
}

func matchesFormat(format, value string) bool {
	check, ok := formatCheckers[strings.ToLower(format)]
	if !ok {
		return true
	}
	return check(value)
}

func isEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return false
	}
	parts := strings.Split(value, "@")
	return len(parts) == 2 && strings.Contains(parts[1], ".")
}

func isUUID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil && len(value) == 36
}

func isDate(value string) bool {
	_, err := time.Parse(dateLayout, value)
	return err == nil
}

func isDateTime(value string) bool {
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

func isURI(value string) bool {
	u, err := url.Parse(value)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func isIPv4(value string) bool {
	ip := net.ParseIP(value)
	return ip != nil && ip.To4() != nil
}
