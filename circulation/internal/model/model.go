package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	TotalElements int `json:"totalElements"`
}

type Category struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

type Book struct {
	ID              int64           `json:"id" db:"id"`
	Title           string          `json:"title" db:"title"`
	Author          string          `json:"author" db:"author"`
	ISBN            string          `json:"isbn" db:"isbn"`
	CategoryID      *int64          `json:"categoryId,omitempty" db:"category_id"`
	Quantity        int             `json:"quantity" db:"quantity"`
	Available       int             `json:"available" db:"available"`
	Description     string          `json:"description" db:"description"`
	Price           decimal.Decimal `json:"price" db:"price"`
	PublicationDate *time.Time      `json:"publicationDate,omitempty" db:"publication_date"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

func (b Book) Label() string { return b.Title }

type ListBooks struct {
	Paging `json:",inline"`
	Items  []Book `json:"items"`
}

type Availability string

const (
	AvailabilityAny         Availability = ""
	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
)

type BookFilter struct {
	Query        string
	CategoryID   int64
	Availability Availability
	Page         int
	Size         int
}

type CreateBookRequest struct {
	Title           string          `json:"title" validate:"required,max=200"`
	Author          string          `json:"author" validate:"required,max=200"`
	ISBN            string          `json:"isbn" validate:"required,max=13"`
	CategoryID      *int64          `json:"categoryId"`
	Quantity        int             `json:"quantity" validate:"gte=0"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	PublicationDate string          `json:"publicationDate" validate:"omitempty,isodate"`
}

type UpdateBookRequest struct {
	Title       *string          `json:"title" validate:"omitempty,max=200"`
	Author      *string          `json:"author" validate:"omitempty,max=200"`
	CategoryID  *int64           `json:"categoryId"`
	Quantity    *int             `json:"quantity" validate:"omitempty,gte=0"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
}

type User struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	IsStaff   bool      `json:"isStaff" db:"is_staff"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func (u User) Label() string { return u.Username }

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"omitempty,email"`
	IsStaff  bool   `json:"isStaff"`
	// IsActive defaults to true when omitted.
	IsActive *bool `json:"isActive"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	IsStaff  *bool   `json:"isStaff"`
	IsActive *bool   `json:"isActive"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
}
