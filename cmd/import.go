package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jmehdipour/churn-predictor/internal/csvio"
	"github.com/jmehdipour/churn-predictor/internal/db"
	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/repository"
	"github.com/jmehdipour/churn-predictor/internal/schema"
)

const importChunk = 500

var importCmd = &cobra.Command{
	Use:   "import <customers.csv>",
	Short: "Load a customer table (optionally with historical Churn) into MySQL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(true)
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()

		rows, err := csvio.ReadRows(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		customers, skipped := toImported(rows)
		for _, s := range skipped {
			logger.Log.Warn("row skipped", zap.Int("row", s.Row), zap.String("customer_id", s.CustomerID), zap.String("reason", s.Reason))
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.Pool(cfg.MySQL))
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		repo := repository.NewCustomersRepository(sqlDB)
		ctx := context.Background()
		for start := 0; start < len(customers); start += importChunk {
			end := min(start+importChunk, len(customers))
			if err := repo.UpsertBatch(ctx, customers[start:end]); err != nil {
				return fmt.Errorf("upsert customers %d-%d: %w", start, end, err)
			}
		}

		logger.Log.Info("import complete",
			zap.Int("imported", len(customers)), zap.Int("skipped", len(skipped)))
		return nil
	},
}

// toImported validates every row; rows without an id or failing validation
// are reported and left out.
func toImported(rows []csvio.Row) ([]model.ImportedCustomer, []model.RowFailure) {
	v := schema.New()
	out := make([]model.ImportedCustomer, 0, len(rows))
	var skipped []model.RowFailure

	for i, r := range rows {
		id := strings.TrimSpace(r.CustomerID)
		if id == "" {
			skipped = append(skipped, model.RowFailure{Row: i, Reason: "missing customerID"})
			continue
		}
		c, err := v.Validate(r.Record())
		if err != nil {
			skipped = append(skipped, model.RowFailure{Row: i, CustomerID: id, Reason: err.Error()})
			continue
		}

		ic := model.ImportedCustomer{
			ID:              id,
			Gender:          c.Gender,
			SeniorCitizen:   c.SeniorCitizen,
			Partner:         c.Partner,
			Dependents:      c.Dependents,
			Tenure:          c.Tenure,
			PhoneService:    c.PhoneService,
			InternetService: c.InternetService,
			Contract:        c.Contract,
			PaperlessBill:   c.PaperlessBilling,
			PaymentMethod:   c.PaymentMethod,
			MonthlyCharges:  c.MonthlyCharges,
			TotalCharges:    c.TotalCharges,
		}
		if churn := strings.TrimSpace(r.Churn); churn == "Yes" || churn == "No" {
			ic.Churn = &churn
		}
		out = append(out, ic)
	}
	return out, skipped
}
