package model

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the credential record. OtpHash and OtpExpiresAt (unix millis) are set and
// cleared together; both zero means no challenge is outstanding.
type User struct {
	ID           string `json:"id" bson:"_id"`
	Name         string `json:"name" bson:"name"`
	Email        string `json:"email" bson:"email"`
	PasswordHash string `json:"-" bson:"password_hash"`
	Role         string `json:"role" bson:"role"`
	OtpHash      string `json:"-" bson:"otp_hash,omitempty"`
	OtpExpiresAt int64  `json:"-" bson:"otp_expires_at,omitempty"`
	Ctime        int64  `json:"ctime" bson:"ctime"`
	Mtime        int64  `json:"mtime" bson:"mtime"`
}

// HasOTP reports whether the OTP fields are physically present, expired or not.
func (u *User) HasOTP() bool {
	return u.OtpHash != "" || u.OtpExpiresAt != 0
}

// OTPPending reports whether an unexpired challenge is outstanding at nowMilli.
func (u *User) OTPPending(nowMilli int64) bool {
	return u.OtpHash != "" && u.OtpExpiresAt != 0 && u.OtpExpiresAt > nowMilli
}

// OTPExpired reports whether a present challenge has elapsed at nowMilli.
func (u *User) OTPExpired(nowMilli int64) bool {
	return u.HasOTP() && u.OtpExpiresAt < nowMilli
}
