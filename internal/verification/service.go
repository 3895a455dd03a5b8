// Package verification issues and checks one-time contact verification codes.
package verification

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"matching-platform/internal/common/config"
	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/common/metrics"
	"matching-platform/internal/common/validation"
	"matching-platform/internal/notification"
)

var (
	ErrCodeExpired      = errors.New("VERIFICATION_EXPIRED")
	ErrCodeMismatch     = errors.New("VERIFICATION_MISMATCH")
	ErrTooManyAttempts  = errors.New("VERIFICATION_LOCKED")
	ErrUnsupportedInput = errors.New("UNSUPPORTED_CHANNEL")
)

// MismatchError is returned for a wrong code while attempts remain.
type MismatchError struct {
	AttemptsLeft int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("verification code mismatch, %d attempts left", e.AttemptsLeft)
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrCodeMismatch
}

// Sender delivers a rendered template over one channel.
type Sender interface {
	Email(ctx context.Context, to, templateID string, vars map[string]string) error
	SMS(ctx context.Context, phone, templateID string, vars map[string]string) error
}

type Service struct {
	rdb         redis.Cmdable
	sender      Sender
	ttl         time.Duration
	maxAttempts int
	codeLength  int
	log         logger.Logger
}

func NewService(cfg config.VerificationConfig, rdb redis.Cmdable, sender Sender, log logger.Logger) *Service {
	return &Service{
		rdb:         rdb,
		sender:      sender,
		ttl:         config.GetSeconds(cfg.CodeTTL),
		maxAttempts: cfg.MaxAttempts,
		codeLength:  cfg.CodeLength,
		log:         log.WithFields(map[string]interface{}{"component": "verification"}),
	}
}

// Send issues a fresh code for the contact, replacing any pending one, and delivers it.
func (s *Service) Send(ctx context.Context, channel, contact, name string) error {
	contact, err := normalizeContact(channel, contact)
	if err != nil {
		return err
	}

	code, err := generateCode(s.codeLength)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	key := codeKey(channel, contact)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, "hash", hashCode(code), "attempts", 0)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return stderrors.NewVerificationStoreError(err)
	}

	vars := map[string]string{
		"code":    code,
		"name":    name,
		"minutes": strconv.Itoa(int(s.ttl.Minutes())),
	}
	if channel == notification.ChannelSMS {
		err = s.sender.SMS(ctx, contact, notification.TemplateVerificationSMS, vars)
	} else {
		err = s.sender.Email(ctx, contact, notification.TemplateVerificationEmail, vars)
	}
	if err != nil {
		metrics.VerificationCodes.WithLabelValues(channel, "send_failed").Inc()
		return err
	}

	metrics.VerificationCodes.WithLabelValues(channel, "sent").Inc()
	s.log.Info("Verification code sent", map[string]interface{}{"channel": channel})
	return nil
}

// Verify checks code against the pending code for the contact. A successful check consumes
// the code.
func (s *Service) Verify(ctx context.Context, channel, contact, code string) error {
	contact, err := normalizeContact(channel, contact)
	if err != nil {
		return err
	}
	key := codeKey(channel, contact)

	entry, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return stderrors.NewVerificationStoreError(err)
	}
	if entry["hash"] == "" {
		metrics.VerificationCodes.WithLabelValues(channel, "expired").Inc()
		return ErrCodeExpired
	}

	attempts, _ := strconv.Atoi(entry["attempts"])
	if attempts >= s.maxAttempts {
		metrics.VerificationCodes.WithLabelValues(channel, "locked").Inc()
		return ErrTooManyAttempts
	}

	if subtle.ConstantTimeCompare([]byte(entry["hash"]), []byte(hashCode(strings.TrimSpace(code)))) == 1 {
		if err := s.rdb.Del(ctx, key).Err(); err != nil {
			s.log.Warn("Failed to delete used verification code", map[string]interface{}{"error": err.Error()})
		}
		metrics.VerificationCodes.WithLabelValues(channel, "verified").Inc()
		return nil
	}

	n, err := s.rdb.HIncrBy(ctx, key, "attempts", 1).Result()
	if err != nil {
		return stderrors.NewVerificationStoreError(err)
	}
	metrics.VerificationCodes.WithLabelValues(channel, "mismatch").Inc()

	left := s.maxAttempts - int(n)
	if left <= 0 {
		return ErrTooManyAttempts
	}
	return &MismatchError{AttemptsLeft: left}
}

// ToStandardError maps verification failures to API errors. Other errors pass through
// AsStandardError.
func ToStandardError(err error) *stderrors.StandardError {
	var mismatch *MismatchError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &mismatch):
		return stderrors.NewVerificationMismatchError(mismatch.AttemptsLeft)
	case errors.Is(err, ErrCodeExpired):
		return stderrors.NewVerificationExpiredError()
	case errors.Is(err, ErrTooManyAttempts):
		return stderrors.NewVerificationLockedError()
	case errors.Is(err, ErrUnsupportedInput):
		return stderrors.NewUnsupportedChannelError(err.Error())
	}
	return stderrors.AsStandardError(err)
}

func normalizeContact(channel, contact string) (string, error) {
	switch channel {
	case notification.ChannelEmail:
		contact = strings.ToLower(strings.TrimSpace(contact))
		if !validation.ValidateEmail(contact) {
			return "", fmt.Errorf("%w: invalid email", ErrUnsupportedInput)
		}
		return contact, nil
	case notification.ChannelSMS:
		phone := validation.NormalizePhone(contact)
		if !validation.ValidatePhone(phone) {
			return "", fmt.Errorf("%w: invalid phone number", ErrUnsupportedInput)
		}
		return phone, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedInput, channel)
}

func codeKey(channel, contact string) string {
	return "verify:" + channel + ":" + contact
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// generateCode returns a uniformly random decimal code of the given length.
func generateCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
