package dto

import (
	"time"

	"earnify/domain/entities"
	"earnify/domain/services"
)

// UserDTO is the account as shown to its owner
type UserDTO struct {
	ID               int64      `json:"id"`
	Username         string     `json:"username"`
	FirstName        string     `json:"firstName"`
	LastName         string     `json:"lastName"`
	Balance          int64      `json:"balance"`
	PendingBalance   int64      `json:"pendingBalance"`
	TotalEarned      int64      `json:"totalEarned"`
	ReferralEarnings int64      `json:"referralEarnings"`
	DailyStreak      int        `json:"dailyStreak"`
	LastClaim        *time.Time `json:"lastClaim,omitempty"`
	ReferralCode     string     `json:"referralCode"`
	ReferredBy       *string    `json:"referredBy,omitempty"`
	Level            int        `json:"level"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// ProfileDTO is the account without balances
type ProfileDTO struct {
	TelegramID   int64     `json:"telegramId"`
	Username     string    `json:"username"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	ReferralCode string    `json:"referralCode"`
	Level        int       `json:"level"`
	DailyStreak  int       `json:"dailyStreak"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TransactionDTO is one ledger entry
type TransactionDTO struct {
	ID          int64                 `json:"id"`
	Amount      int64                 `json:"amount"`
	Type        string                `json:"type"`
	Category    string                `json:"category"`
	Status      string                `json:"status"`
	Description string                `json:"description"`
	BankDetails *entities.BankDetails `json:"bankDetails,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// ReferralStatsDTO summarises a referrer's downline
type ReferralStatsDTO struct {
	TotalReferrals  int   `json:"totalReferrals"`
	ActiveReferrals int   `json:"activeReferrals"`
	TotalEarned     int64 `json:"totalEarned"`
}

// DashboardDTO is the dashboard payload
type DashboardDTO struct {
	Balance            int64            `json:"balance"`
	PendingBalance     int64            `json:"pendingBalance"`
	TotalEarned        int64            `json:"totalEarned"`
	ReferralEarnings   int64            `json:"referralEarnings"`
	DailyStreak        int              `json:"dailyStreak"`
	Level              int              `json:"level"`
	ReferralCode       string           `json:"referralCode"`
	ReferralStats      ReferralStatsDTO `json:"referralStats"`
	RecentTransactions []TransactionDTO `json:"recentTransactions"`
}

// GameDTO is a catalogue entry
type GameDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	IframeURL    string `json:"iframeUrl"`
	ImageURL     string `json:"imageUrl"`
	MinWager     int64  `json:"minWager"`
	MaxWager     int64  `json:"maxWager"`
	TotalPlays   int64  `json:"totalPlays"`
	TotalWagered int64  `json:"totalWagered"`
	IsActive     bool   `json:"isActive"`
}

// OfferDTO is a CPA offer
type OfferDTO struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Reward      int64     `json:"reward"`
	Link        string    `json:"link"`
	ImageURL    string    `json:"imageUrl"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

func FromUser(u *entities.User) UserDTO {
	return UserDTO{
		ID:               u.ID,
		Username:         u.Username,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Balance:          u.Balance,
		PendingBalance:   u.PendingBalance,
		TotalEarned:      u.TotalEarned,
		ReferralEarnings: u.ReferralEarnings,
		DailyStreak:      u.DailyStreak,
		LastClaim:        u.LastClaim,
		ReferralCode:     u.ReferralCode,
		ReferredBy:       u.ReferredBy,
		Level:            u.Level,
		CreatedAt:        u.CreatedAt,
	}
}

func FromProfile(u *entities.User) ProfileDTO {
	return ProfileDTO{
		TelegramID:   u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		ReferralCode: u.ReferralCode,
		Level:        u.Level,
		DailyStreak:  u.DailyStreak,
		CreatedAt:    u.CreatedAt,
	}
}

func FromTransaction(t *entities.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          t.ID,
		Amount:      t.Amount,
		Type:        string(t.Direction),
		Category:    string(t.Category),
		Status:      string(t.Status),
		Description: t.Description,
		BankDetails: t.BankDetails,
		CreatedAt:   t.CreatedAt,
	}
}

func FromDashboard(d *services.Dashboard) DashboardDTO {
	out := DashboardDTO{
		Balance:            d.User.Balance,
		PendingBalance:     d.User.PendingBalance,
		TotalEarned:        d.User.TotalEarned,
		ReferralEarnings:   d.User.ReferralEarnings,
		DailyStreak:        d.User.DailyStreak,
		Level:              d.User.Level,
		ReferralCode:       d.User.ReferralCode,
		RecentTransactions: make([]TransactionDTO, len(d.RecentTransactions)),
	}
	if d.ReferralStats != nil {
		out.ReferralStats = ReferralStatsDTO{
			TotalReferrals:  d.ReferralStats.TotalReferrals,
			ActiveReferrals: d.ReferralStats.ActiveReferrals,
			TotalEarned:     d.ReferralStats.TotalCommission,
		}
	}
	for i, tx := range d.RecentTransactions {
		out.RecentTransactions[i] = FromTransaction(tx)
	}
	return out
}

func FromGame(g *entities.Game) GameDTO {
	return GameDTO{
		ID:           g.ID,
		Name:         g.Name,
		IframeURL:    g.IframeURL,
		ImageURL:     g.ImageURL,
		MinWager:     g.MinWager,
		MaxWager:     g.MaxWager,
		TotalPlays:   g.TotalPlays,
		TotalWagered: g.TotalWagered,
		IsActive:     g.IsActive,
	}
}

func FromGames(games []*entities.Game) []GameDTO {
	out := make([]GameDTO, len(games))
	for i, g := range games {
		out[i] = FromGame(g)
	}
	return out
}

func FromOffer(o *entities.Offer) OfferDTO {
	return OfferDTO{
		ID:          o.ID,
		Title:       o.Title,
		Description: o.Description,
		Reward:      o.Reward,
		Link:        o.Link,
		ImageURL:    o.ImageURL,
		Category:    o.Category,
		Type:        o.Type,
		IsActive:    o.IsActive,
		CreatedAt:   o.CreatedAt,
	}
}

func FromOffers(offers []*entities.Offer) []OfferDTO {
	out := make([]OfferDTO, len(offers))
	for i, o := range offers {
		out[i] = FromOffer(o)
	}
	return out
}
