package models

import "strings"

// User is the subset of an account the chat core reads.
type User struct {
	ID         string `db:"id" json:"id"`
	FirstName  string `db:"first_name" json:"first_name"`
	LastName   string `db:"last_name" json:"last_name"`
	Email      string `db:"email" json:"email"`
	IsDisabled bool   `db:"is_disabled" json:"is_disabled"`
}

// Ref projects the user for display.
func (u User) Ref() UserRef {
	return UserRef{
		ID:    u.ID,
		Name:  strings.TrimSpace(u.FirstName + " " + u.LastName),
		Email: u.Email,
	}
}

// UserRef is the display-safe projection of a user.
type UserRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Product is the subset of a listing the chat core reads.
type Product struct {
	ID        string  `db:"id"`
	PosterID  string  `db:"poster_id"`
	Title     string  `db:"title"`
	Thumbnail string  `db:"thumbnail"`
	Price     float64 `db:"price"`
}

// Summary projects the product for chat payloads.
func (p Product) Summary() ProductSummary {
	return ProductSummary{ID: p.ID, Title: p.Title, Thumbnail: p.Thumbnail, Price: p.Price}
}

// ProductSummary is the display projection of a product.
type ProductSummary struct {
	ID        string  `json:"_id"`
	Title     string  `json:"title"`
	Thumbnail string  `json:"thumbnail"`
	Price     float64 `json:"price"`
}
