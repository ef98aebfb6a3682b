package mqtt

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// StatusMessage is a decoded retained status payload.
type StatusMessage struct {
	ClientID string
	Online   bool
	Reason   string
}

// ParseStatus decodes a payload published on a status topic. Both the
// online message and the offline Last Will are accepted.
func ParseStatus(payload []byte) (StatusMessage, error) {
	if !gjson.ValidBytes(payload) {
		return StatusMessage{}, fmt.Errorf("%w: not JSON", ErrInvalidStatus)
	}

	doc := gjson.ParseBytes(payload)
	clientID := doc.Get("client_id").String()
	if clientID == "" {
		return StatusMessage{}, fmt.Errorf("%w: missing client_id", ErrInvalidStatus)
	}

	msg := StatusMessage{ClientID: clientID, Reason: doc.Get("reason").String()}
	switch status := doc.Get("status").String(); status {
	case statusOnline:
		msg.Online = true
	case statusOffline:
	default:
		return StatusMessage{}, fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, status)
	}
	return msg, nil
}
