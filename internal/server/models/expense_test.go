package models

import (
	"errors"
	"testing"
	"time"

	"expense-api/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestExpenseValidate(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		expense Expense
		wantErr bool
	}{
		{
			name:    "valid",
			expense: Expense{Amount: decimal.RequireFromString("12.50"), Category: "food", Date: date},
			wantErr: false,
		},
		{
			name:    "zero amount",
			expense: Expense{Amount: decimal.Zero, Category: "food", Date: date},
			wantErr: true,
		},
		{
			name:    "negative amount",
			expense: Expense{Amount: decimal.RequireFromString("-0.01"), Category: "food", Date: date},
			wantErr: true,
		},
		{
			name:    "empty category",
			expense: Expense{Amount: decimal.NewFromInt(1), Category: "", Date: date},
			wantErr: true,
		},
		{
			name:    "empty description is fine",
			expense: Expense{Amount: decimal.NewFromInt(1), Category: "misc", Description: "", Date: date},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.expense.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, common.ErrorValidation), "want validation error, got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
