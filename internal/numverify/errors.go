package numverify

import (
	"errors"
	"fmt"
)

// Step names one node of the handshake.
type Step string

const (
	StepBootstrap Step = "bootstrap"
	StepMetadata  Step = "metadata"
	StepAuthCode  Step = "auth_code"
	StepToken     Step = "token"
	StepVerify    Step = "verify"
)

// Steps lists the handshake in execution order.
var Steps = []Step{StepBootstrap, StepMetadata, StepAuthCode, StepToken, StepVerify}

var (
	ErrCredentials              = errors.New("client credentials bootstrap failed")
	ErrMetadata                 = errors.New("provider metadata discovery failed")
	ErrAuthorizationRequest     = errors.New("authorization request failed")
	ErrAuthorizationCodeMissing = errors.New("authorization code not received")
	ErrStateMismatch            = errors.New("authorization state mismatch")
	ErrTokenExchange            = errors.New("token exchange failed")
	ErrVerificationCall         = errors.New("number verification call failed")
)

// StepError records which step of the handshake failed.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("number verification %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep returns the step recorded in err, if any.
func FailedStep(err error) (Step, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step, true
	}
	return "", false
}
