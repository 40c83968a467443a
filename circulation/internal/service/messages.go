package service

import (
	"fmt"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

func loanLink(id int64) *string {
	link := fmt.Sprintf("/loans/%d", id)
	return &link
}

func newNotification(userID int64, kind model.NotificationType, title, message string) model.Notification {
	return model.Notification{
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
	}
}

func (s *Service) approvedNotification(d model.LoanDetail) model.Notification {
	n := newNotification(d.UserID, model.NotificationIssueApproved,
		"Book Issue Approved",
		fmt.Sprintf("Your request for %q has been approved. Please return it by %s.",
			d.BookTitle, dayOf(d.ReturnDate, s.policy.Location)))
	n.Link = loanLink(d.ID)
	return n
}

func rejectedNotification(d model.LoanDetail) model.Notification {
	n := newNotification(d.UserID, model.NotificationIssueRejected,
		"Book Issue Rejected",
		fmt.Sprintf("Your request for %q has been rejected.", d.BookTitle))
	n.Link = loanLink(d.ID)
	return n
}

func returnedNotification(d model.LoanDetail) model.Notification {
	n := newNotification(d.UserID, model.NotificationReturned,
		"Book Returned",
		fmt.Sprintf("Thank you for returning %q.", d.BookTitle))
	n.Link = loanLink(d.ID)
	return n
}

func fineAddedNotification(d model.LoanDetail, days int) model.Notification {
	n := newNotification(d.UserID, model.NotificationFineAdded,
		"Fine Added",
		fmt.Sprintf("%q was returned %d day(s) late. A fine of %s has been added to your account.",
			d.BookTitle, days, d.FineAmount.StringFixed(2)))
	n.Link = loanLink(d.ID)
	return n
}

func finePaidNotification(userID, settled int64) model.Notification {
	return newNotification(userID, model.NotificationFinePaid,
		"Fines Paid",
		fmt.Sprintf("Payment received for %d loan(s). Your account is settled.", settled))
}

func reservedNotification(userID int64, book model.Book) model.Notification {
	return newNotification(userID, model.NotificationSystem,
		"Book Reserved",
		fmt.Sprintf("%q is reserved for you. Visit the library to collect it.", book.Title))
}

// reminderNotification builds the sweep message for one bucket. The dedupe key
// makes a second reminder for the same loan, bucket and day a no-op.
func (s *Service) reminderNotification(d model.LoanDetail, bucket model.SweepBucket, day string, overdueDays int, projected decimal.Decimal) model.Notification {
	var n model.Notification
	due := dayOf(d.ReturnDate, s.policy.Location)
	switch bucket {
	case model.BucketDueIn2:
		n = newNotification(d.UserID, model.NotificationDueSoon,
			"Book Due in 2 Days",
			fmt.Sprintf("%q is due in 2 days, on %s.", d.BookTitle, due))
	case model.BucketDueIn1:
		n = newNotification(d.UserID, model.NotificationDueSoon,
			"Book Due Tomorrow",
			fmt.Sprintf("%q is due tomorrow, on %s.", d.BookTitle, due))
	case model.BucketDueToday:
		n = newNotification(d.UserID, model.NotificationDueSoon,
			"Book Due Today",
			fmt.Sprintf("%q is due today. Please return it to avoid a fine.", d.BookTitle))
	default:
		n = newNotification(d.UserID, model.NotificationOverdue,
			"Book Overdue",
			fmt.Sprintf("%q was due on %s and is %d day(s) overdue. Current fine: %s.",
				d.BookTitle, due, overdueDays, projected.StringFixed(2)))
	}
	n.Link = loanLink(d.ID)
	key := dedupeKey(d.ID, bucket, day)
	n.DedupeKey = &key
	return n
}

func dedupeKey(loanID int64, bucket model.SweepBucket, day string) string {
	return fmt.Sprintf("sweep:%d:%s:%s", loanID, bucket, day)
}

func dayOf(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}
