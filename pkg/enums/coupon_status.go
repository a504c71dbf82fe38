package enums

import "fmt"

// CouponStatus marks whether a coupon can still be applied.
type CouponStatus string

const (
	CouponStatusAvailable   CouponStatus = "available"
	CouponStatusUnavailable CouponStatus = "unavailable"
)

var validCouponStatuses = []CouponStatus{
	CouponStatusAvailable,
	CouponStatusUnavailable,
}

// String implements fmt.Stringer.
func (c CouponStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CouponStatus.
func (c CouponStatus) IsValid() bool {
	for _, candidate := range validCouponStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCouponStatus converts raw input into a CouponStatus.
func ParseCouponStatus(value string) (CouponStatus, error) {
	for _, candidate := range validCouponStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid coupon status %q", value)
}
