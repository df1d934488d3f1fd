package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert stock: %w", &pgconn.PgError{Code: "23505", ConstraintName: "stocks_name_key"})
	fk := &pgconn.PgError{Code: "23503"}
	check := &pgconn.PgError{Code: "23514"}

	if !IsUniqueViolation(unique) {
		t.Fatalf("expected wrapped unique violation to be detected")
	}
	if ConstraintName(unique) != "stocks_name_key" {
		t.Fatalf("constraint=%q", ConstraintName(unique))
	}
	if !IsForeignKeyViolation(fk) || IsUniqueViolation(fk) {
		t.Fatalf("fk violation misclassified")
	}
	if !IsCheckViolation(check) {
		t.Fatalf("check violation misclassified")
	}
	if IsUniqueViolation(errors.New("plain")) || ConstraintName(errors.New("plain")) != "" {
		t.Fatalf("plain error classified as pg error")
	}
}
