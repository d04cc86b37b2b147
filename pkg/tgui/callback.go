package tgui

import (
	"errors"
	"strconv"
	"strings"
)

// MaxCallbackDataLen is Telegram's callback_data size limit in bytes.
const MaxCallbackDataLen = 64

var ErrCallbackDataTooLong = errors.New("tgui: callback_data too long")

// Data formats inline callback data as "scope:action:payload". The payload
// may itself contain ':'; only the first two separators are significant.
func Data(scope, action, payload string) string {
	scope = strings.TrimSpace(scope)
	action = strings.TrimSpace(action)
	if payload == "" {
		return scope + ":" + action
	}
	return scope + ":" + action + ":" + payload
}

// DataID is Data with a numeric payload.
func DataID(scope, action string, id int64) string {
	return Data(scope, action, strconv.FormatInt(id, 10))
}

// CheckData reports ErrCallbackDataTooLong for data Telegram would reject.
func CheckData(data string) error {
	if len(data) > MaxCallbackDataLen {
		return ErrCallbackDataTooLong
	}
	return nil
}

// ParseData splits callback data produced by Data. Telegram may prefix
// unique-button data with '\f', which is stripped.
func ParseData(data string) (scope, action, payload string, ok bool) {
	data = strings.TrimPrefix(strings.TrimSpace(data), "\f")
	parts := strings.SplitN(data, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", false
	}
	if len(parts) == 3 {
		payload = parts[2]
	}
	return parts[0], parts[1], payload, true
}
