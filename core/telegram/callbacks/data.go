// Package callbacks encodes and decodes inline button callback data in the
// form telebot uses: "\f<namespace>|<payload>".
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// MaxData is the Telegram limit on callback data, in bytes.
const MaxData = 64

// Data is the namespace and payload carried by an inline button.
type Data struct {
	Namespace string
	Payload   string
}

// Encode renders d the way telebot writes it into callback_data.
func (d Data) Encode() string {
	if d.Payload == "" {
		return "\f" + d.Namespace
	}
	return "\f" + d.Namespace + "|" + d.Payload
}

// Fits reports whether the encoded form stays within MaxData.
func (d Data) Fits() bool { return len(d.Encode()) <= MaxData }

// Decode reads the callback data of cb. Telebot fills Unique itself when
// the namespace matched a registered endpoint; Data is then the bare payload.
func Decode(cb *tele.Callback) Data {
	if cb == nil {
		return Data{}
	}
	if cb.Unique != "" {
		return Data{Namespace: cb.Unique, Payload: cb.Data}
	}
	ns, payload, _ := strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return Data{Namespace: strings.TrimSpace(ns), Payload: payload}
}

// Namespace is the namespace of the callback in c, or "".
func Namespace(c tele.Context) string {
	return Decode(c.Callback()).Namespace
}
