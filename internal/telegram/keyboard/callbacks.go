package keyboard

import (
	"fmt"
	"strings"
)

// CallbackData represents parsed callback data
type CallbackData struct {
	Action string // one of the Action* constants
	Value  string // conversation id or export format
}

// ParseCallback parses callback data string
func ParseCallback(data string) (*CallbackData, error) {
	action, value, ok := strings.Cut(data, ":")
	if !ok || action == "" {
		return nil, fmt.Errorf("invalid callback format: %s", data)
	}

	return &CallbackData{
		Action: action,
		Value:  value,
	}, nil
}

// EncodeCallback creates callback data string. Telegram caps callback data
// at 64 bytes, which fits a uuid or short id with any action prefix.
func EncodeCallback(action, value string) string {
	return action + ":" + value
}
