package e

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Сентинельные ошибки, на которые хэндлеры мапят HTTP-статусы
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidStatus = errors.New("invalid status")
	ErrInternal      = errors.New("internal error")
)

// Wrap оборачивает ошибку с контекстом операции
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// WrapPg переводит ошибки pgx/pgconn в сентинельные.
// ErrNoRows становится ErrNotFound, нарушения ограничений — ErrInvalidInput.
func WrapPg(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23503", "23514":
			return fmt.Errorf("%s: %w", op, ErrInvalidInput)
		default:
			return fmt.Errorf("%s: pg error %s: %w", op, pgErr.Code, ErrInternal)
		}
	}
	return fmt.Errorf("%s: %w", op, ErrInternal)
}
