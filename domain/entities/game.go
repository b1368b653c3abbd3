package entities

import "time"

const (
	DefaultMinWager int64 = 50
	DefaultMaxWager int64 = 5000
)

// Game is an embedded game users can wager on. Play counters move only with a wager.
type Game struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	IframeURL    string    `db:"iframe_url"`
	ImageURL     string    `db:"image_url"`
	MinWager     int64     `db:"min_wager"`
	MaxWager     int64     `db:"max_wager"`
	TotalPlays   int64     `db:"total_plays"`
	TotalWagered int64     `db:"total_wagered"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// AcceptsWager reports whether amount lies within the game's bounds
func (g *Game) AcceptsWager(amount int64) bool {
	return amount >= g.MinWager && amount <= g.MaxWager
}
