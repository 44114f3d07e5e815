package models

import "github.com/shopspring/decimal"

// LeaderboardEntry is one player's standing, ranked by net worth.
type LeaderboardEntry struct {
	Username       string          `json:"username"`
	Title          string          `json:"title"`
	TitleImage     string          `json:"title_image,omitempty"`
	LiquidAssets   decimal.Decimal `json:"liquidAssets"`
	InvestedAssets decimal.Decimal `json:"investedAssets"`
	NetWorth       decimal.Decimal `json:"netWorth"`
}

// Title is a cosmetic rank sold in the shop.
type Title struct {
	Title string          `json:"title"`
	Level int             `json:"level"`
	Price decimal.Decimal `json:"price"`
}

// TitleInfo is the title a player currently holds. Level -1 means none.
type TitleInfo struct {
	Level int    `json:"level"`
	Name  string `json:"name"`
}

type NewsArticle struct {
	ID         string    `json:"_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Author     string    `json:"author"`
	IsFeatured bool      `json:"isFeatured"`
	Thumbnail  *string   `json:"thumbnail"`
	Timestamp  Timestamp `json:"timestamp"`
}
