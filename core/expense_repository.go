package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Expense is one owned spending record. JSON field names mirror the wire
// contract consumed by the frontend.
type Expense struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// CategorySummary aggregates spending for one category.
type CategorySummary struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int64   `json:"count"`
}

// ExpenseRepository defines persistence operations for expenses. Every
// operation that touches an existing row filters by the owner as well as the
// id, so a foreign-owned row is indistinguishable from a missing one.
type ExpenseRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]Expense, error)
	Create(ctx context.Context, userID int64, title, category string, amount float64) (*Expense, error)
	Get(ctx context.Context, id, userID int64) (*Expense, error)
	Update(ctx context.Context, id, userID int64, title, category string, amount float64) (*Expense, error)
	Delete(ctx context.Context, id, userID int64) (bool, error)
	SummaryByCategory(ctx context.Context, userID int64) ([]CategorySummary, error)
}

// PgExpenseRepository implements ExpenseRepository using pgxpool.
type PgExpenseRepository struct {
	db *pgxpool.Pool
}

func NewPgExpenseRepository(db *pgxpool.Pool) *PgExpenseRepository {
	return &PgExpenseRepository{db: db}
}

func (r *PgExpenseRepository) ListByUser(ctx context.Context, userID int64) ([]Expense, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, user_id, title, category, amount, created_at
FROM expenses
WHERE user_id=$1
ORDER BY created_at DESC, id DESC
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]Expense, 0, 16)
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Title, &e.Category, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *PgExpenseRepository) Create(ctx context.Context, userID int64, title, category string, amount float64) (*Expense, error) {
	const q = `INSERT INTO expenses (user_id, title, category, amount) VALUES ($1,$2,$3,$4) RETURNING id, created_at`
	e := Expense{UserID: userID, Title: title, Category: category, Amount: amount}
	if err := r.db.QueryRow(ctx, q, userID, title, category, amount).Scan(&e.ID, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PgExpenseRepository) Get(ctx context.Context, id, userID int64) (*Expense, error) {
	const q = `SELECT id, user_id, title, category, amount, created_at FROM expenses WHERE id=$1 AND user_id=$2`
	var e Expense
	if err := r.db.QueryRow(ctx, q, id, userID).Scan(&e.ID, &e.UserID, &e.Title, &e.Category, &e.Amount, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *PgExpenseRepository) Update(ctx context.Context, id, userID int64, title, category string, amount float64) (*Expense, error) {
	const q = `UPDATE expenses SET title=$1, category=$2, amount=$3 WHERE id=$4 AND user_id=$5 RETURNING id, user_id, title, category, amount, created_at`
	var e Expense
	if err := r.db.QueryRow(ctx, q, title, category, amount, id, userID).Scan(&e.ID, &e.UserID, &e.Title, &e.Category, &e.Amount, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete reports whether a row was actually removed so the caller can answer
// 404 for missing or foreign-owned ids.
func (r *PgExpenseRepository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	const q = `DELETE FROM expenses WHERE id=$1 AND user_id=$2`
	tag, err := r.db.Exec(ctx, q, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgExpenseRepository) SummaryByCategory(ctx context.Context, userID int64) ([]CategorySummary, error) {
	rows, err := r.db.Query(ctx, `
SELECT category, SUM(amount) AS total, COUNT(*) AS count
FROM expenses
WHERE user_id=$1
GROUP BY category
ORDER BY total DESC
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]CategorySummary, 0, 8)
	for rows.Next() {
		var s CategorySummary
		if err := rows.Scan(&s.Category, &s.Total, &s.Count); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}
