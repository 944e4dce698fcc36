package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   Parsed
		wantOK bool
	}{
		{
			name:   "card charge",
			text:   "Your card ending in 1234 was charged R45.00 at Starbucks on 15/12/2023",
			want:   Parsed{Amount: 45, Store: "Starbucks", Shape: "card"},
			wantOK: true,
		},
		{
			name:   "transaction alert with balance",
			text:   "Transaction Alert: R450.00 debit at Shell Petrol Station. Available balance: R12,345.67",
			want:   Parsed{Amount: 450, Store: "Shell Petrol Station", Shape: "alert"},
			wantOK: true,
		},
		{
			name:   "payment completed",
			text:   "Payment of R853.00 to Pick n Pay completed. Reference: TXN123456789",
			want:   Parsed{Amount: 853, Store: "Pick n Pay", Shape: "payment"},
			wantOK: true,
		},
		{
			name:   "spent with trailing period",
			text:   "You spent R85.50 at Vida e Caffe.",
			want:   Parsed{Amount: 85.5, Store: "Vida e Caffe", Shape: "spent"},
			wantOK: true,
		},
		{
			name:   "amount before spent",
			text:   "R120.00 spent at KFC Rosebank",
			want:   Parsed{Amount: 120, Store: "KFC Rosebank", Shape: "spent-after"},
			wantOK: true,
		},
		{
			name:   "debit without at",
			text:   "Debit: R99.99 Netflix.com",
			want:   Parsed{Amount: 99.99, Store: "Netflix.com", Shape: "debit"},
			wantOK: true,
		},
		{
			name:   "received is income",
			text:   "You have received R5,000.00 from ACME PAYROLL",
			want:   Parsed{Amount: 5000, Store: "ACME PAYROLL", IsIncome: true, Shape: "received"},
			wantOK: true,
		},
		{
			name:   "credited is income",
			text:   "R250.00 has been credited to your account from J Smith",
			want:   Parsed{Amount: 250, Store: "J Smith", IsIncome: true, Shape: "credited"},
			wantOK: true,
		},
		{
			name: "otp",
			text: "Your OTP is 123456",
		},
		{
			name: "zero amount",
			text: "You spent R0.00 at Spar",
		},
		{
			name: "empty",
			text: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestCleanStore(t *testing.T) {
	assert.Equal(t, "Spar Menlyn", cleanStore("  Spar   Menlyn. "))
	assert.Equal(t, "Woolworths", cleanStore("Woolworths,"))
	assert.Equal(t, "", cleanStore(" - "))
}
