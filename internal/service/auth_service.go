package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/dailypen/internal/model"
	appErr "github.com/xxxsen/dailypen/internal/pkg/errors"
	"github.com/xxxsen/dailypen/internal/pkg/otpcode"
	"github.com/xxxsen/dailypen/internal/pkg/password"
)

const otpMailSubject = "Your DailyPen login code"

type CredentialStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, userID string) (*model.User, error)
	// SetOTP stores a new challenge only if the record's current otp hash equals prevHash.
	SetOTP(ctx context.Context, userID, prevHash, otpHash string, expiresAt, mtime int64) error
	// ClearOTP removes the challenge only if the record's current otp hash equals otpHash.
	ClearOTP(ctx context.Context, userID, otpHash string, mtime int64) error
	ListUsers(ctx context.Context) ([]*model.User, error)
	UpdateName(ctx context.Context, userID, name string, mtime int64) error
	DeleteUser(ctx context.Context, userID string) error
}

type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

type LoginStatus int

const (
	LoginChallengeIssued LoginStatus = iota + 1
	LoginAlreadyPending
)

type LoginResult struct {
	Status LoginStatus
	UserID string
}

type AuthOptions struct {
	OTPTTL        time.Duration
	AllowRegister bool
	Digester      *otpcode.Digester
}

type AuthService struct {
	users         CredentialStore
	sender        EmailSender
	tokens        TokenIssuer
	digester      *otpcode.Digester
	otpTTL        time.Duration
	allowRegister bool

	now     func() time.Time
	genCode func() (string, error)
}

func NewAuthService(users CredentialStore, sender EmailSender, tokens TokenIssuer, opts AuthOptions) *AuthService {
	digester := opts.Digester
	if digester == nil {
		digester = otpcode.NewDigester(nil)
	}
	ttl := opts.OTPTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AuthService{
		users:         users,
		sender:        sender,
		tokens:        tokens,
		digester:      digester,
		otpTTL:        ttl,
		allowRegister: opts.AllowRegister,
		now:           time.Now,
		genCode:       otpcode.Generate,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, name, email, plainPassword string) (*model.User, string, error) {
	if !s.allowRegister {
		return nil, "", appErr.ErrForbidden
	}
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return nil, "", appErr.ErrInvalid
	}
	if err := password.Validate(plainPassword); err != nil {
		return nil, "", err
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return nil, "", err
	}
	now := s.now().UnixMilli()
	user := &model.User{
		ID:           newID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks the password and, unless a challenge is already pending, mails a fresh code.
func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.NewAuthError(appErr.KindInvalidCredentials, nil)
		}
		return nil, err
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return nil, appErr.NewAuthError(appErr.KindInvalidCredentials, nil)
	}

	now := s.now()
	if user.OTPPending(now.UnixMilli()) {
		return &LoginResult{Status: LoginAlreadyPending, UserID: user.ID}, nil
	}

	code, err := s.genCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	if err := s.storeChallenge(ctx, user, code, now); err != nil {
		if errors.Is(err, errChallengePending) {
			return &LoginResult{Status: LoginAlreadyPending, UserID: user.ID}, nil
		}
		return nil, err
	}

	if err := s.sender.Send(ctx, user.Email, otpMailSubject, otpMailBody(user.Name, code, s.otpTTL)); err != nil {
		logutil.GetLogger(ctx).Error("send otp mail failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return nil, appErr.NewAuthError(appErr.KindNotificationFailed, err)
	}
	return &LoginResult{Status: LoginChallengeIssued, UserID: user.ID}, nil
}

var errChallengePending = errors.New("challenge already pending")

// storeChallenge writes the digest of code over the challenge observed in user. When
// another request changed the record first, a pending challenge wins; otherwise the
// write is retried once against the re-read hash.
func (s *AuthService) storeChallenge(ctx context.Context, user *model.User, code string, now time.Time) error {
	digest := s.digester.Digest(code)
	expiresAt := now.Add(s.otpTTL).UnixMilli()
	prevHash := user.OtpHash
	for attempt := 0; ; attempt++ {
		err := s.users.SetOTP(ctx, user.ID, prevHash, digest, expiresAt, now.UnixMilli())
		if err == nil || !appErr.IsConflict(err) {
			return err
		}
		current, rerr := s.users.GetByID(ctx, user.ID)
		if rerr != nil {
			return rerr
		}
		if current.OTPPending(s.now().UnixMilli()) {
			return errChallengePending
		}
		if attempt >= 1 {
			return err
		}
		prevHash = current.OtpHash
	}
}

// VerifyOTP consumes the pending challenge of userID and issues a session token.
func (s *AuthService) VerifyOTP(ctx context.Context, userID, code string) (*model.User, string, error) {
	userID = strings.TrimSpace(userID)
	code = strings.TrimSpace(code)
	if userID == "" || code == "" {
		return nil, "", appErr.NewAuthError(appErr.KindInvalidRequest, nil)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, "", appErr.NewAuthError(appErr.KindUserNotFound, nil)
		}
		return nil, "", err
	}
	if !user.HasOTP() {
		return s.issueWithoutChallenge(ctx, user)
	}
	if user.OTPExpired(s.now().UnixMilli()) {
		return nil, "", appErr.NewAuthError(appErr.KindOtpExpired, nil)
	}
	if !s.digester.Match(user.OtpHash, code) {
		return nil, "", appErr.NewAuthError(appErr.KindInvalidOtp, nil)
	}
	if err := s.users.ClearOTP(ctx, user.ID, user.OtpHash, s.now().UnixMilli()); err != nil {
		if !appErr.IsConflict(err) {
			return nil, "", err
		}
		current, rerr := s.users.GetByID(ctx, user.ID)
		if rerr != nil {
			return nil, "", rerr
		}
		if current.HasOTP() {
			// a new challenge replaced the one this code belonged to
			return nil, "", appErr.NewAuthError(appErr.KindInvalidOtp, nil)
		}
		return s.issueWithoutChallenge(ctx, current)
	}
	user.OtpHash = ""
	user.OtpExpiresAt = 0
	return s.issue(user)
}

// issueWithoutChallenge serves a verify for a record with no stored challenge, which
// is what a repeated verify looks like after the first one cleared the code.
func (s *AuthService) issueWithoutChallenge(ctx context.Context, user *model.User) (*model.User, string, error) {
	logutil.GetLogger(ctx).Warn("verify otp without pending challenge, issuing token",
		zap.String("user_id", user.ID),
	)
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*model.User, string, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

func otpMailBody(name, code string, ttl time.Duration) string {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}
	return fmt.Sprintf("%s,\n\nYour DailyPen login code is %s.\nIt expires in %d minutes.\n\nIf you did not try to sign in, you can ignore this email.\n",
		greeting, code, int(ttl.Minutes()))
}
