package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
	"github.com/shopspring/decimal"
)

// fakeRepo is an in-memory repository.Repository. InTx serialises
// transactions and restores a snapshot when fn fails.
type fakeRepo struct {
	txMu sync.Mutex
	mu   sync.Mutex

	seq           int64
	users         map[int64]model.User
	categories    map[int64]model.Category
	books         map[int64]model.Book
	loans         map[int64]model.Loan
	reservations  map[int64]model.Reservation
	reviews       map[int64]model.Review
	notifications []model.Notification

	appendErr func(n model.Notification) error
}

var _ repository.Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:        map[int64]model.User{},
		categories:   map[int64]model.Category{},
		books:        map[int64]model.Book{},
		loans:        map[int64]model.Loan{},
		reservations: map[int64]model.Reservation{},
		reviews:      map[int64]model.Review{},
	}
}

type snapshot struct {
	seq           int64
	users         map[int64]model.User
	categories    map[int64]model.Category
	books         map[int64]model.Book
	loans         map[int64]model.Loan
	reservations  map[int64]model.Reservation
	reviews       map[int64]model.Review
	notifications []model.Notification
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (f *fakeRepo) InTx(_ context.Context, fn func(tx repository.Store) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	snap := snapshot{
		seq:           f.seq,
		users:         cloneMap(f.users),
		categories:    cloneMap(f.categories),
		books:         cloneMap(f.books),
		loans:         cloneMap(f.loans),
		reservations:  cloneMap(f.reservations),
		reviews:       cloneMap(f.reviews),
		notifications: append([]model.Notification(nil), f.notifications...),
	}
	f.mu.Unlock()

	if err := fn(f); err != nil {
		f.mu.Lock()
		f.seq = snap.seq
		f.users = snap.users
		f.categories = snap.categories
		f.books = snap.books
		f.loans = snap.loans
		f.reservations = snap.reservations
		f.reviews = snap.reviews
		f.notifications = snap.notifications
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeRepo) nextID() int64 {
	f.seq++
	return f.seq
}

// seed helpers

func (f *fakeRepo) addUser(u model.User) model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = f.nextID()
	f.users[u.ID] = u
	return u
}

func (f *fakeRepo) addBook(quantity, available int) model.Book {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := model.Book{ID: f.nextID(), Title: "Dune", Author: "Frank Herbert", Quantity: quantity, Available: available}
	b.ISBN = fmt.Sprintf("97800000%05d", b.ID)
	f.books[b.ID] = b
	return b
}

func (f *fakeRepo) addLoan(l model.Loan) model.Loan {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = f.nextID()
	if l.PaymentStatus == "" {
		l.PaymentStatus = model.PaymentPending
	}
	f.loans[l.ID] = l
	return l
}

func (f *fakeRepo) book(id int64) model.Book {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.books[id]
}

func (f *fakeRepo) loan(id int64) model.Loan {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loans[id]
}

func (f *fakeRepo) notificationsOf(userID int64) []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func (f *fakeRepo) detail(l model.Loan) (model.LoanDetail, error) {
	b, ok := f.books[l.BookID]
	if !ok {
		return model.LoanDetail{}, errs.ErrNotFound
	}
	u, ok := f.users[l.UserID]
	if !ok {
		return model.LoanDetail{}, errs.ErrNotFound
	}
	return model.LoanDetail{Loan: l, BookTitle: b.Title, Username: u.Username, Email: u.Email}, nil
}

// loans

func (f *fakeRepo) GetLoan(_ context.Context, id int64) (model.LoanDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.loans[id]
	if !ok {
		return model.LoanDetail{}, errs.ErrNotFound
	}
	return f.detail(l)
}

func (f *fakeRepo) LockLoan(_ context.Context, id int64) (model.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.loans[id]
	if !ok {
		return model.Loan{}, errs.ErrNotFound
	}
	return l, nil
}

func (f *fakeRepo) CreateLoan(_ context.Context, loan model.Loan) (model.Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.books[loan.BookID]; !ok {
		return model.Loan{}, errs.ErrNotFound
	}
	if _, ok := f.users[loan.UserID]; !ok {
		return model.Loan{}, errs.ErrNotFound
	}
	loan.ID = f.nextID()
	f.loans[loan.ID] = loan
	return loan, nil
}

func (f *fakeRepo) UpdateLoan(_ context.Context, loan model.Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.loans[loan.ID]; !ok {
		return errs.ErrNotFound
	}
	if (loan.ActualReturnDate != nil) != (loan.Status == model.LoanReturned) {
		return errs.ErrValidation
	}
	f.loans[loan.ID] = loan
	return nil
}

func (f *fakeRepo) sortedLoans(keep func(model.Loan) bool) ([]model.LoanDetail, error) {
	out := make([]model.LoanDetail, 0)
	for _, l := range f.loans {
		if !keep(l) {
			continue
		}
		d, err := f.detail(l)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) ListLoans(_ context.Context, filter model.LoanFilter) ([]model.LoanDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedLoans(func(l model.Loan) bool {
		return (filter.UserID == 0 || l.UserID == filter.UserID) &&
			(filter.Status == "" || l.Status == filter.Status)
	})
}

func (f *fakeRepo) ListOpenLoans(_ context.Context) ([]model.LoanDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sortedLoans(func(l model.Loan) bool {
		return !l.IsReturned() && l.Status.HoldsCopy()
	})
}

func (f *fakeRepo) SettleFines(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, l := range f.loans {
		if l.UserID == userID && l.FineAmount.GreaterThan(decimal.Zero) && l.PaymentStatus != model.PaymentPaid {
			l.PaymentStatus = model.PaymentPaid
			f.loans[id] = l
			n++
		}
	}
	return n, nil
}

// books

func (f *fakeRepo) GetBook(_ context.Context, id int64) (model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok {
		return model.Book{}, errs.ErrNotFound
	}
	return b, nil
}

func (f *fakeRepo) LockBook(ctx context.Context, id int64) (model.Book, error) {
	return f.GetBook(ctx, id)
}

func (f *fakeRepo) ListBooks(_ context.Context, filter model.BookFilter) (model.ListBooks, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]model.Book, 0)
	for _, b := range f.books {
		if filter.Availability == model.AvailabilityAvailable && b.Available == 0 {
			continue
		}
		items = append(items, b)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return model.ListBooks{Paging: model.Paging{TotalElements: len(items)}, Items: items}, nil
}

func (f *fakeRepo) CreateBook(_ context.Context, book model.Book) (model.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.books {
		if b.ISBN == book.ISBN {
			return model.Book{}, errs.ErrConflict
		}
	}
	book.ID = f.nextID()
	f.books[book.ID] = book
	return book, nil
}

func (f *fakeRepo) UpdateBook(_ context.Context, book model.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.books[book.ID]; !ok {
		return errs.ErrNotFound
	}
	if book.Available < 0 || book.Available > book.Quantity {
		return errs.ErrInventoryExhausted
	}
	f.books[book.ID] = book
	return nil
}

func (f *fakeRepo) DeleteBook(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.books[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.books, id)
	for lid, l := range f.loans {
		if l.BookID == id {
			delete(f.loans, lid)
		}
	}
	for rid, r := range f.reservations {
		if r.BookID == id {
			delete(f.reservations, rid)
		}
	}
	for rid, r := range f.reviews {
		if r.BookID == id {
			delete(f.reviews, rid)
		}
	}
	return nil
}

func (f *fakeRepo) AdjustAvailable(_ context.Context, bookID int64, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[bookID]
	if !ok {
		return errs.ErrNotFound
	}
	next := b.Available + delta
	if next < 0 {
		return errs.ErrInventoryExhausted
	}
	if next > b.Quantity {
		return errs.ErrConflict
	}
	b.Available = next
	f.books[bookID] = b
	return nil
}

// categories and users

func (f *fakeRepo) CreateCategory(_ context.Context, c model.Category) (model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID()
	f.categories[c.ID] = c
	return c, nil
}

func (f *fakeRepo) ListCategories(_ context.Context) ([]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Category, 0, len(f.categories))
	for _, c := range f.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRepo) LockCategory(_ context.Context, id int64) (model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return model.Category{}, errs.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) UpdateCategory(_ context.Context, c model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[c.ID]; !ok {
		return errs.ErrNotFound
	}
	f.categories[c.ID] = c
	return nil
}

// DeleteCategory mirrors on delete set null for books.category_id.
func (f *fakeRepo) DeleteCategory(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.categories, id)
	for bid, b := range f.books {
		if b.CategoryID != nil && *b.CategoryID == id {
			b.CategoryID = nil
			f.books[bid] = b
		}
	}
	return nil
}

func (f *fakeRepo) CreateUser(_ context.Context, u model.User) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return model.User{}, errs.ErrConflict
		}
	}
	u.ID = f.nextID()
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeRepo) GetUser(_ context.Context, id int64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, errs.ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) LockUser(ctx context.Context, id int64) (model.User, error) {
	return f.GetUser(ctx, id)
}

func (f *fakeRepo) ListUsers(_ context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRepo) UpdateUser(_ context.Context, u model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return errs.ErrNotFound
	}
	f.users[u.ID] = u
	return nil
}

// notifications

func (f *fakeRepo) AppendNotification(_ context.Context, n model.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		if err := f.appendErr(n); err != nil {
			return false, err
		}
	}
	if n.DedupeKey != nil {
		for _, existing := range f.notifications {
			if existing.DedupeKey != nil && *existing.DedupeKey == *n.DedupeKey {
				return false, nil
			}
		}
	}
	n.ID = f.nextID()
	f.notifications = append(f.notifications, n)
	return true, nil
}

func (f *fakeRepo) ListNotifications(_ context.Context, userID int64, page, size int) ([]model.Notification, error) {
	items := f.notificationsOf(userID)
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	if page > 0 && size > 0 {
		from := min((page-1)*size, len(items))
		items = items[from:min(from+size, len(items))]
	}
	return items, nil
}

func (f *fakeRepo) CountNotifications(_ context.Context, userID int64) (int, error) {
	return len(f.notificationsOf(userID)), nil
}

func (f *fakeRepo) CountUnread(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, item := range f.notificationsOf(userID) {
		if !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) MarkRead(_ context.Context, userID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.notifications {
		if n.ID == id && n.UserID == userID {
			f.notifications[i].IsRead = true
			return nil
		}
	}
	return errs.ErrNotFound
}

func (f *fakeRepo) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var marked int64
	for i, n := range f.notifications {
		if n.UserID == userID && !n.IsRead {
			f.notifications[i].IsRead = true
			marked++
		}
	}
	return marked, nil
}

// reservations

func (f *fakeRepo) CreateReservation(_ context.Context, r model.Reservation) (model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = f.nextID()
	f.reservations[r.ID] = r
	return r, nil
}

func (f *fakeRepo) GetReservation(_ context.Context, id int64) (model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return model.Reservation{}, errs.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) LockReservation(ctx context.Context, id int64) (model.Reservation, error) {
	return f.GetReservation(ctx, id)
}

func (f *fakeRepo) UpdateReservationStatus(_ context.Context, id int64, status model.ReservationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return errs.ErrNotFound
	}
	r.Status = status
	f.reservations[id] = r
	return nil
}

func (f *fakeRepo) ListReservations(_ context.Context, userID int64) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Reservation, 0)
	for _, r := range f.reservations {
		if userID == 0 || r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// reviews

func (f *fakeRepo) CreateReview(_ context.Context, r model.Review) (model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Rating < model.MinRating || r.Rating > model.MaxRating {
		return model.Review{}, errs.ErrValidation
	}
	u, ok := f.users[r.UserID]
	if _, found := f.books[r.BookID]; !found || !ok {
		return model.Review{}, errs.ErrNotFound
	}
	for _, existing := range f.reviews {
		if existing.BookID == r.BookID && existing.UserID == r.UserID {
			return model.Review{}, errs.ErrConflict
		}
	}
	r.ID = f.nextID()
	r.Username = u.Username
	f.reviews[r.ID] = r
	return r, nil
}

func (f *fakeRepo) GetReview(_ context.Context, id int64) (model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[id]
	if !ok {
		return model.Review{}, errs.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) ListReviews(_ context.Context, filter model.ReviewFilter) ([]model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Review, 0)
	for _, r := range f.reviews {
		if (filter.BookID == 0 || r.BookID == filter.BookID) && (filter.UserID == 0 || r.UserID == filter.UserID) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeRepo) DeleteReview(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reviews[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.reviews, id)
	return nil
}
