package entity

import "time"

// OTP purposes.
const (
	OTPPurposeVerification  = "verification"
	OTPPurposePasswordReset = "password_reset"
)

// ValidOTPPurpose reports whether purpose is a known OTP purpose.
func ValidOTPPurpose(purpose string) bool {
	return purpose == OTPPurposeVerification || purpose == OTPPurposePasswordReset
}

// OneTimeCode is an SMS code issued for a phone number. Records are never
// deleted; expiry is a comparison against ExpiresAt at verification time.
// Several unverified codes may exist for one identifier, the newest wins.
type OneTimeCode struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     *uint      `gorm:"index" json:"user_id,omitempty"`
	Identifier string     `gorm:"size:20;not null;index:idx_otp_lookup,priority:1" json:"identifier"`
	Code       string     `gorm:"size:6;not null" json:"-"`
	Purpose    string     `gorm:"size:20;not null;index:idx_otp_lookup,priority:2" json:"purpose"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expires_at"`
	Verified   bool       `gorm:"not null;default:false" json:"verified"`
	CreatedAt  time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

func (OneTimeCode) TableName() string {
	return "one_time_codes"
}

func (o *OneTimeCode) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
