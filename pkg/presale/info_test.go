package presale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenomics_AddsUpToHundred(t *testing.T) {
	total := 0
	for _, a := range Tokenomics {
		total += a.Percent
	}
	assert.Equal(t, 100, total)
	assert.Equal(t, "Presale (ICO)", Tokenomics[0].Name)
}

func TestCountdownTo(t *testing.T) {
	end := time.Date(2025, 10, 5, 15, 0, 0, 0, time.FixedZone("UTC+8", 8*3600))

	tests := []struct {
		name string
		now  time.Time
		want Countdown
		str  string
	}{
		{
			name: "days ahead",
			now:  end.Add(-(2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second + 300*time.Millisecond)),
			want: Countdown{Days: 2, Hours: 3, Minutes: 4, Seconds: 5},
			str:  "02d 03h 04m 05s",
		},
		{
			name: "under a minute",
			now:  end.Add(-59 * time.Second),
			want: Countdown{Seconds: 59},
			str:  "00d 00h 00m 59s",
		},
		{
			name: "exactly at end",
			now:  end,
			want: Countdown{Ended: true},
			str:  "Presale Ended",
		},
		{
			name: "after end",
			now:  end.Add(time.Hour),
			want: Countdown{Ended: true},
			str:  "Presale Ended",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountdownTo(tt.now, end)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.str, got.String())
		})
	}
}
