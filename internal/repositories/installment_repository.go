package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crm-system/internal/entities"
)

type InstallmentRepositoryInterface interface {
	UpsertInTx(ctx context.Context, tx pgx.Tx, details *entities.InstallmentDetails) error
	FindByRequestIDInTx(ctx context.Context, tx pgx.Tx, requestID string) (*entities.InstallmentDetails, error)
}

type InstallmentRepository struct {
	storage *pgxpool.Pool
}

func NewInstallmentRepository(storage *pgxpool.Pool) InstallmentRepositoryInterface {
	return &InstallmentRepository{storage: storage}
}

func (r *InstallmentRepository) UpsertInTx(ctx context.Context, tx pgx.Tx, d *entities.InstallmentDetails) error {
	obligations := d.Obligations
	if obligations == nil {
		obligations = []entities.Obligation{}
	}
	rawObligations, err := json.Marshal(obligations)
	if err != nil {
		return fmt.Errorf("encode obligations: %w", err)
	}

	query, args, err := psql.Insert("installment_details").
		Columns("request_id", "bank_id", "salary", "obligations", "down_payment", "term_months",
			"deduction_rate", "deducted_amount", "final_amount", "created_at", "updated_at").
		Values(d.RequestID, d.BankID, d.Salary, rawObligations, d.DownPayment, d.TermMonths,
			d.DeductionRate, d.DeductedAmount, d.FinalAmount, d.CreatedAt, d.UpdatedAt).
		Suffix(`ON CONFLICT (request_id) DO UPDATE SET
			bank_id = EXCLUDED.bank_id,
			salary = EXCLUDED.salary,
			obligations = EXCLUDED.obligations,
			down_payment = EXCLUDED.down_payment,
			term_months = EXCLUDED.term_months,
			deduction_rate = EXCLUDED.deduction_rate,
			deducted_amount = EXCLUDED.deducted_amount,
			final_amount = EXCLUDED.final_amount,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert installment details: %w", err)
	}
	return nil
}

func (r *InstallmentRepository) FindByRequestIDInTx(ctx context.Context, tx pgx.Tx, requestID string) (*entities.InstallmentDetails, error) {
	query, args, err := psql.Select("request_id", "bank_id", "salary", "obligations", "down_payment", "term_months",
		"deduction_rate", "deducted_amount", "final_amount", "created_at", "updated_at").
		From("installment_details").
		Where(sq.Eq{"request_id": requestID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var d entities.InstallmentDetails
	err = tx.QueryRow(ctx, query, args...).Scan(&d.RequestID, &d.BankID, &d.Salary, &d.Obligations, &d.DownPayment,
		&d.TermMonths, &d.DeductionRate, &d.DeductedAmount, &d.FinalAmount, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "installment details", requestID)
	}
	return &d, nil
}
