package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveNetWeight(t *testing.T) {
	cases := []struct {
		name               string
		mode               WeighMode
		tare, gross, input string
		want               int64
	}{
		{name: "weighing", mode: WeighModeWeighing, tare: "13.8", gross: "25.0", want: 11200},
		{name: "gross below tare clamps", mode: WeighModeWeighing, tare: "30", gross: "25", want: 0},
		{name: "blank tare", mode: WeighModeWeighing, gross: "4.5", want: 4500},
		{name: "garbage gross", mode: WeighModeWeighing, tare: "2", gross: "abc", want: 0},
		{name: "direct", mode: WeighModeDirect, input: " 75 ", want: 75000},
		{name: "direct negative", mode: WeighModeDirect, input: "-3", want: 0},
		{name: "direct NaN", mode: WeighModeDirect, input: "NaN", want: 0},
		{name: "direct infinity", mode: WeighModeDirect, input: "+Inf", want: 0},
		{name: "direct huge", mode: WeighModeDirect, input: "1e300", want: 0},
		{name: "direct ignores scale fields", mode: WeighModeDirect, tare: "1", gross: "9", input: "2", want: 2000},
		{name: "unknown mode", mode: "scale", input: "5", want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveNetWeight(tc.mode, tc.tare, tc.gross, tc.input)
			assert.Equal(t, tc.want, got)
			assert.GreaterOrEqual(t, got, int64(0))
		})
	}
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, 0.0, ParseNumber(""))
	assert.Equal(t, 0.0, ParseNumber("12,5"))
	assert.Equal(t, 12.5, ParseNumber("12.5"))
	assert.Equal(t, int64(12500), ParseGrams("12.5"))
	assert.Equal(t, int64(1250), ParseGrams("1.25"))
}

func TestMulDivRoundHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, int64(3), mulDivRound(5, 1, 2))
	assert.Equal(t, int64(-3), mulDivRound(-5, 1, 2))
	assert.Equal(t, int64(2), mulDivRound(7, 1, 4))
	assert.Equal(t, int64(0), mulDivRound(7, 1, 0))
}
