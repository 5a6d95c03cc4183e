package models

import "time"

// Post is a blog post. CreatedBy holds the creator's user ID and
// CreatedByName the creator's display string.
type Post struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	CreatedBy     string    `json:"-"`
	CreatedByName string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// Comment belongs to a post.
type Comment struct {
	ID            string    `json:"id"`
	PostID        string    `json:"post"`
	Content       string    `json:"content"`
	CreatedBy     string    `json:"-"`
	CreatedByName string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

// Order selects the creation-time ordering of a listing.
type Order string

const (
	OrderNewest Order = "newest"
	OrderOldest Order = "oldest"
)

// Page bounds a list query.
type Page struct {
	Limit  int
	Offset int
	Order  Order
}
