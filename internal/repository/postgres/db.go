package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier общий интерфейс пула и транзакции
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner общий интерфейс pgx.Row и pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

// DB реализует repository.Transactor поверх пула соединений
type DB struct {
	pool *pgxpool.Pool
}

// NewDB создаёт обёртку над пулом
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// Pool возвращает пул соединений
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Stores возвращает хранилища, работающие вне транзакции
func (db *DB) Stores() repository.Stores {
	return newStores(db.pool)
}

// WithinTx выполняет fn в транзакции
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Stores) error) (err error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(ctx, newStores(tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func newStores(q Querier) repository.Stores {
	return repository.Stores{
		Lessons:   NewLessonRepository(q),
		History:   NewHistoryRepository(q),
		Reminders: NewReminderRepository(q),
		Teachers:  NewTeacherRepository(q),
		Students:  NewStudentRepository(q),
	}
}

// isNotFound проверяет является ли ошибка "строка не найдена"
func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
