package model

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationFulfilled ReservationStatus = "fulfilled"
	ReservationCancelled ReservationStatus = "cancelled"
)

type Reservation struct {
	ID              int64             `json:"id" db:"id"`
	BookID          int64             `json:"bookId" db:"book_id"`
	UserID          int64             `json:"userId" db:"user_id"`
	ReservationDate time.Time         `json:"reservationDate" db:"reservation_date"`
	Status          ReservationStatus `json:"status" db:"status"`
}

type FulfilReservationRequest struct {
	DueDate string `json:"dueDate" validate:"required,isodate"`
}
