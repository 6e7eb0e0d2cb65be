package client

import (
	"context"
	"errors"
	"sync"

	"fintrack/internal/core"
)

// ResetStep is the position of a ResetFlow.
type ResetStep int

const (
	StepEmail ResetStep = iota + 1
	StepPassword
	StepDone
)

var (
	ErrNoAccount        = errors.New("no account found with this email address")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrWrongStep        = errors.New("reset flow is not at this step")
)

// ResetFlow drives password recovery: the email is confirmed first, then a
// new password is set for it. Failures leave the flow on the same step.
type ResetFlow struct {
	client *Client

	mu    sync.Mutex
	step  ResetStep
	email string
}

func (c *Client) NewResetFlow() *ResetFlow {
	return &ResetFlow{client: c, step: StepEmail}
}

func (f *ResetFlow) Step() ResetStep {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Email returns the confirmed address, empty before SubmitEmail succeeds.
func (f *ResetFlow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.email
}

func (f *ResetFlow) SubmitEmail(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepEmail {
		return ErrWrongStep
	}

	email = core.NormalizeEmail(email)
	if err := core.ValidateEmail(email); err != nil {
		return err
	}
	found, err := f.client.ForgotPassword(ctx, email)
	if err != nil {
		return err
	}
	if !found {
		return ErrNoAccount
	}
	f.email = email
	f.step = StepPassword
	return nil
}

// SubmitPassword checks the two entries locally before calling the server.
func (f *ResetFlow) SubmitPassword(ctx context.Context, password, confirm string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepPassword {
		return ErrWrongStep
	}

	if password != confirm {
		return ErrPasswordMismatch
	}
	if err := core.ValidatePassword(password); err != nil {
		return err
	}
	if err := f.client.ResetPassword(ctx, f.email, password); err != nil {
		return err
	}
	f.step = StepDone
	return nil
}
