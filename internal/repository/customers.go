package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jmehdipour/churn-predictor/internal/model"
)

type CustomersRepository interface {
	UpsertBatch(ctx context.Context, rows []model.ImportedCustomer) error
	GetByID(ctx context.Context, id string) (*model.ImportedCustomer, error)
}

type CustomersRepositoryImpl struct {
	db *sqlx.DB
}

func NewCustomersRepository(db *sqlx.DB) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{db: db}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

// UpsertBatch inserts customers, overwriting attributes of ids already present.
func (r *CustomersRepositoryImpl) UpsertBatch(ctx context.Context, rows []model.ImportedCustomer) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(rows)*13)

	sb.WriteString(`INSERT INTO customers
		(id, gender, senior_citizen, partner, dependents, tenure, phone_service,
		 internet_service, contract, paperless_billing, payment_method,
		 monthly_charges, total_charges, churn, created_at, updated_at)
		VALUES `)
	for i, c := range rows {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())")
		args = append(args,
			c.ID, c.Gender, c.SeniorCitizen, c.Partner, c.Dependents, c.Tenure, c.PhoneService,
			c.InternetService, c.Contract, c.PaperlessBill, c.PaymentMethod,
			c.MonthlyCharges, c.TotalCharges, c.Churn,
		)
	}
	sb.WriteString(`
		ON DUPLICATE KEY UPDATE
			gender = VALUES(gender), senior_citizen = VALUES(senior_citizen),
			partner = VALUES(partner), dependents = VALUES(dependents),
			tenure = VALUES(tenure), phone_service = VALUES(phone_service),
			internet_service = VALUES(internet_service), contract = VALUES(contract),
			paperless_billing = VALUES(paperless_billing), payment_method = VALUES(payment_method),
			monthly_charges = VALUES(monthly_charges), total_charges = VALUES(total_charges),
			churn = VALUES(churn), updated_at = NOW()`)

	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *CustomersRepositoryImpl) GetByID(ctx context.Context, id string) (*model.ImportedCustomer, error) {
	var c model.ImportedCustomer
	err := r.db.GetContext(ctx, &c, `
		SELECT id, gender, senior_citizen, partner, dependents, tenure, phone_service,
		       internet_service, contract, paperless_billing, payment_method,
		       monthly_charges, total_charges, churn, created_at, updated_at
		  FROM customers
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
