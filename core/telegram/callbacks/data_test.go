package callbacks

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestDecode(t *testing.T) {
	cases := []struct {
		name string
		cb   *tele.Callback
		want Data
	}{
		{"nil", nil, Data{}},
		{"encoded", &tele.Callback{Data: "\fqans|2"}, Data{"qans", "2"}},
		{"no payload", &tele.Callback{Data: "\fnoop"}, Data{Namespace: "noop"}},
		{"payload with pipe", &tele.Callback{Data: "\fnt|a|b"}, Data{"nt", "a|b"}},
		{"matched endpoint", &tele.Callback{Unique: "case", Data: "3"}, Data{"case", "3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decode(tc.cb))
		})
	}
}

func TestEncodeRoundTripsThroughDecode(t *testing.T) {
	for _, d := range []Data{{"drug", "sertraline"}, {"menu", ""}, {"nt", "a|b"}} {
		assert.Equal(t, d, Decode(&tele.Callback{Data: d.Encode()}))
	}
}

func TestFits(t *testing.T) {
	assert.True(t, Data{"quiz", "answer:3"}.Fits())
	assert.False(t, Data{"drug", strings.Repeat("x", MaxData)}.Fits())
}
