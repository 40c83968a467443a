package model

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotificationIssueApproved NotificationType = "issue_approved"
	NotificationIssueRejected NotificationType = "issue_rejected"
	NotificationDueSoon       NotificationType = "due_soon"
	NotificationOverdue       NotificationType = "overdue"
	NotificationReturned      NotificationType = "returned"
	NotificationFineAdded     NotificationType = "fine_added"
	NotificationFinePaid      NotificationType = "fine_paid"
	NotificationSystem        NotificationType = "system"
)

type Notification struct {
	ID        int64            `json:"id" db:"id"`
	UserID    int64            `json:"userId" db:"user_id"`
	Type      NotificationType `json:"type" db:"notification_type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Link      *string          `json:"link,omitempty" db:"link"`
	IsRead    bool             `json:"isRead" db:"is_read"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
	DedupeKey *string          `json:"-" db:"dedupe_key"`
}

func (n Notification) Label(user User) string {
	return fmt.Sprintf("%s - %s", user.Label(), n.Title)
}

type ListNotifications struct {
	Paging `json:",inline"`
	Unread int            `json:"unread"`
	Items  []Notification `json:"items"`
}
