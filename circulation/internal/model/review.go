package model

import (
	"fmt"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is one member's rating of a book. A member reviews a book at most once.
type Review struct {
	ID        int64     `json:"id" db:"id"`
	BookID    int64     `json:"bookId" db:"book_id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   string    `json:"comment" db:"comment"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func (r Review) Label(book Book) string {
	return fmt.Sprintf("%s - %s - %d", book.Label(), r.Username, r.Rating)
}

type ReviewFilter struct {
	BookID int64
	UserID int64
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required"`
	Comment string `json:"comment" validate:"max=2000"`
}
