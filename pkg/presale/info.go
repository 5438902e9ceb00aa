package presale

import (
	"fmt"
	"time"
)

// Allocation is one slice of the token supply
type Allocation struct {
	Name    string `json:"name"`
	Percent int    `json:"percent"`
}

// Tokenomics is the supply split; the percentages add up to 100
var Tokenomics = []Allocation{
	{Name: "Presale (ICO)", Percent: 50},
	{Name: "Liquidity & Listing", Percent: 30},
	{Name: "Community Rewards & Airdrops", Percent: 5},
	{Name: "Team & Advisors", Percent: 5},
	{Name: "Ecosystem Development Fund", Percent: 5},
	{Name: "Governance & DAO Fund", Percent: 5},
}

// Countdown is the time left until the presale ends
type Countdown struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Ended   bool `json:"ended"`
}

// CountdownTo splits the time between now and end into whole units.
// Once end has passed every unit is zero and Ended is set.
func CountdownTo(now, end time.Time) Countdown {
	left := end.Sub(now)
	if left <= 0 {
		return Countdown{Ended: true}
	}

	left = left.Truncate(time.Second)
	days := int(left / (24 * time.Hour))
	left -= time.Duration(days) * 24 * time.Hour
	hours := int(left / time.Hour)
	left -= time.Duration(hours) * time.Hour
	minutes := int(left / time.Minute)
	left -= time.Duration(minutes) * time.Minute

	return Countdown{Days: days, Hours: hours, Minutes: minutes, Seconds: int(left / time.Second)}
}

func (c Countdown) String() string {
	if c.Ended {
		return "Presale Ended"
	}
	return fmt.Sprintf("%02dd %02dh %02dm %02ds", c.Days, c.Hours, c.Minutes, c.Seconds)
}
