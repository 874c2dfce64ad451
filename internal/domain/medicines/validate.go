package medicines

import (
	"bytes"
	"encoding/json"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxNameLen = 200
	maxTablets = 1000
)

// Formatos aceptados para la hora. Los que no traen zona (p.ej. el valor de un
// <input type="datetime-local">) se interpretan en la zona configurada.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTablets acepta un entero JSON o un string numérico ("2").
func ParseTablets(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, invalid("tablets", "required")
	}

	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, invalid("tablets", "must be an integer")
		}
	} else {
		s = string(raw)
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, invalid("tablets", "must be an integer")
	}
	return n, nil
}

// ParseTime interpreta un datetime ISO-8601. loc aplica solo cuando el valor
// no trae offset.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalid("time", "required")
	}
	if loc == nil {
		loc = time.Local
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalid("time", "must be an ISO-8601 datetime")
}

// NormalizeEmail devuelve solo la dirección (sin display name).
func NormalizeEmail(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid("email", "required")
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return "", invalid("email", "must be a valid address")
	}
	return strings.ToLower(addr.Address), nil
}

func validateCreate(in CreateInput) (CreateInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, invalid("name", "required")
	}
	if utf8.RuneCountInString(in.Name) > maxNameLen {
		return in, invalid("name", "too long")
	}
	if in.Tablets < 1 || in.Tablets > maxTablets {
		return in, invalid("tablets", "must be between 1 and 1000")
	}
	if in.Time.IsZero() {
		return in, invalid("time", "required")
	}

	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return in, err
	}
	in.Email = email
	return in, nil
}
