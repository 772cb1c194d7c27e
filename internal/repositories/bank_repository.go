package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"crm-system/internal/entities"
	apperrors "crm-system/pkg/errors"
)

var bankColumns = []string{"id", "name", "annual_rate", "max_term_months", "is_active", "created_at", "updated_at"}

type BankRepositoryInterface interface {
	List(ctx context.Context, onlyActive bool) ([]entities.Bank, error)
	FindByID(ctx context.Context, id string) (*entities.Bank, error)
	Create(ctx context.Context, bank *entities.Bank) error
	Update(ctx context.Context, bank *entities.Bank) error
}

type BankRepository struct {
	storage *pgxpool.Pool
}

func NewBankRepository(storage *pgxpool.Pool) BankRepositoryInterface {
	return &BankRepository{storage: storage}
}

func (r *BankRepository) List(ctx context.Context, onlyActive bool) ([]entities.Bank, error) {
	b := psql.Select(bankColumns...).From("banks").OrderBy("name ASC")
	if onlyActive {
		b = b.Where(sq.Eq{"is_active": true})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query banks: %w", err)
	}
	defer rows.Close()

	banks := make([]entities.Bank, 0)
	for rows.Next() {
		bank, err := scanBank(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bank: %w", err)
		}
		banks = append(banks, *bank)
	}
	return banks, rows.Err()
}

func (r *BankRepository) FindByID(ctx context.Context, id string) (*entities.Bank, error) {
	query, args, err := psql.Select(bankColumns...).From("banks").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	bank, err := scanBank(r.storage.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "bank", id)
	}
	return bank, nil
}

func (r *BankRepository) Create(ctx context.Context, bank *entities.Bank) error {
	query, args, err := psql.Insert("banks").
		Columns(bankColumns...).
		Values(bank.ID, bank.Name, bank.AnnualRate, bank.MaxTermMonths, bank.IsActive, bank.CreatedAt, bank.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.storage.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflict("bank %q already exists", bank.Name)
		}
		return fmt.Errorf("insert bank: %w", err)
	}
	return nil
}

func (r *BankRepository) Update(ctx context.Context, bank *entities.Bank) error {
	query, args, err := psql.Update("banks").
		Set("name", bank.Name).
		Set("annual_rate", bank.AnnualRate).
		Set("max_term_months", bank.MaxTermMonths).
		Set("is_active", bank.IsActive).
		Set("updated_at", bank.UpdatedAt).
		Where(sq.Eq{"id": bank.ID}).
		ToSql()
	if err != nil {
		return err
	}
	err = execAffectingOne(ctx, r.storage, "bank", bank.ID, query, args...)
	if isUniqueViolation(err) {
		return apperrors.NewConflict("bank %q already exists", bank.Name)
	}
	return err
}

func scanBank(row rowScanner) (*entities.Bank, error) {
	var b entities.Bank
	if err := row.Scan(&b.ID, &b.Name, &b.AnnualRate, &b.MaxTermMonths, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
