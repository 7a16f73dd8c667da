package services

import (
	"fmt"
	"math/rand/v2"
)

const (
	invoiceNumberPrefix = "NF"
	// maxNumberAttempts bounds regeneration after a number collision.
	maxNumberAttempts = 5
)

// NumberGenerator returns a candidate invoice number. Candidates may collide;
// the unique index on invoices.number decides.
type NumberGenerator func() string

// RandomInvoiceNumber returns "NF" followed by six random digits.
func RandomInvoiceNumber() string {
	return fmt.Sprintf("%s%06d", invoiceNumberPrefix, rand.IntN(1_000_000))
}
