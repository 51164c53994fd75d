// Package drafting turns a post caption into a suggested engagement comment
// using an OpenAI compatible chat completion endpoint.
package drafting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	// ErrInvalidRequest wraps input validation failures.
	ErrInvalidRequest = errors.New("invalid drafting request")
	// ErrUpstream wraps inference provider failures. The wrapped detail is for
	// logs only.
	ErrUpstream = errors.New("inference provider failure")
)

// Request is the body of the drafting endpoint.
type Request struct {
	Caption    string `json:"postCaption" validate:"required,max=2200"`
	Handle     string `json:"accountHandle" validate:"max=64"`
	Guidelines string `json:"voiceGuidelines" validate:"max=1000"`
}

// Completer sends a single user prompt and returns the model's text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	completer Completer
	validate  *validator.Validate
	log       *zap.Logger
	timeout   time.Duration
}

// NewService creates a drafting service. A nil completer makes every draft
// fail with ErrUpstream after validation.
func NewService(completer Completer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		completer: completer,
		validate:  validator.New(),
		log:       log.Named("drafting"),
		timeout:   30 * time.Second,
	}
}

// Validate normalizes req in place and checks its constraints.
func (s *Service) Validate(req *Request) error {
	req.Caption = strings.TrimSpace(req.Caption)
	req.Handle = strings.TrimSpace(req.Handle)
	req.Guidelines = strings.TrimSpace(req.Guidelines)

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidRequest, describe(verrs[0]))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// Draft validates req and asks the completer for a comment. Validation
// happens before any provider call.
func (s *Service) Draft(ctx context.Context, req Request) (string, error) {
	if err := s.Validate(&req); err != nil {
		return "", err
	}
	if s.completer == nil {
		return "", fmt.Errorf("%w: completer not configured", ErrUpstream)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.completer.Complete(ctx, BuildPrompt(req))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	comment := strings.TrimSpace(out)
	if comment == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUpstream)
	}
	return comment, nil
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch field {
	case "Caption":
		field = "postCaption"
	case "Handle":
		field = "accountHandle"
	case "Guidelines":
		field = "voiceGuidelines"
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
