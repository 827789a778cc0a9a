package helper

import (
	"booking_manager/model"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// NextOrderNumber allocates the next YYYY-MM-NNN order number. Must run
// inside the same transaction as the order insert. An empty month has no
// rows a FOR UPDATE scan could lock, so concurrent callers serialize on a
// transaction-scoped advisory lock keyed by the month prefix instead.
func NextOrderNumber(tx *gorm.DB, now time.Time) (string, error) {
	prefix := now.Format("2006-01")
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "order_number:"+prefix).Error; err != nil {
		return "", err
	}
	var codes []string
	if err := tx.Model(&model.Order{}).
		Where("public_code LIKE ?", prefix+"-%").
		Pluck("public_code", &codes).Error; err != nil {
		return "", err
	}
	return nextSequence(codes, prefix), nil
}

func nextSequence(codes []string, prefix string) string {
	max := 0
	for _, code := range codes {
		suffix := strings.TrimPrefix(code, prefix+"-")
		n, err := strconv.Atoi(suffix)
		if err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%03d", prefix, max+1)
}
