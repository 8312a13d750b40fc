package domain

import (
	"fmt"
	"strconv"
	"time"
)

type MembershipPlan struct {
	ID                   string
	Name                 string `validate:"required,max=100"`
	MonthlyPropertyLimit int    `validate:"gte=0"`
	MonthlyPrice         int    `validate:"gte=0"`
	Features             []string
	Active               bool
	SortOrder            int `validate:"gte=0"`
	CreatedAt            time.Time
}

func (m MembershipPlan) Validate() error {
	return checkStruct(m).Err()
}

// FormattedPrice renders the monthly price with thousands separators.
func (m MembershipPlan) FormattedPrice() string {
	if m.MonthlyPrice == 0 {
		return "free"
	}
	return fmt.Sprintf("%s/month", groupThousands(m.MonthlyPrice))
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	head := len(s) % 3
	res := s[:head]
	for i := head; i < len(s); i += 3 {
		if res != "" {
			res += ","
		}
		res += s[i : i+3]
	}
	return res
}
