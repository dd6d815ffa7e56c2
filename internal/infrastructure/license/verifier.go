package license

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// PurchaseCode authorizes quoting when the installation carries a well-formed purchase code.
type PurchaseCode struct {
	verified bool
}

// NewPurchaseCode checks code once; purchase codes are UUIDs.
func NewPurchaseCode(code string) *PurchaseCode {
	code = strings.TrimSpace(code)
	if code == "" {
		return &PurchaseCode{}
	}
	_, err := uuid.Parse(code)
	return &PurchaseCode{verified: err == nil}
}

func (p *PurchaseCode) Verified(ctx context.Context) bool {
	_ = ctx
	return p != nil && p.verified
}
