// Copyright 2025 YishanCoding
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Failure taxonomy and the shared retry policy for generation calls.
//
// Every Gemini call in the pipeline is wrapped by the same policy: overload
// and unavailable signals are retried with exponential backoff up to a
// fixed budget; authorization, quota, and contract failures surface
// immediately because retrying them can never succeed.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// FailureKind classifies an error from a generation call into the buckets
// that drive retry and user messaging decisions.
type FailureKind int

const (
	FailureUnknown  FailureKind = iota
	FailureTransient            // Service overloaded or unavailable; retryable.
	FailureAuth                 // Permission or billing; user must reconnect a credential.
	FailureQuota                // Rate or quota exhausted; not retried automatically.
	FailureContract             // The model broke the output contract (no image, schema mismatch, refusal).
	FailureLocal                // Local resource failure (media failed to decode or load).
)

// ContractError reports a response that violated the declared output
// contract: a missing image part, JSON missing required fields, or a count
// mismatch against the requested structure.
type ContractError struct {
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("generation contract violated: %s", e.Reason)
}

// NewContractError builds a ContractError with a formatted reason.
func NewContractError(format string, args ...any) error {
	return &ContractError{Reason: fmt.Sprintf(format, args...)}
}

// LocalError reports a failure in local media handling, such as a video
// that cannot be probed for frame capture. Never retried.
type LocalError struct {
	Op  string
	Err error
}

func (e *LocalError) Error() string {
	return fmt.Sprintf("local media failure in %s: %v", e.Op, e.Err)
}

func (e *LocalError) Unwrap() error { return e.Err }

// Classify maps an error to its FailureKind. API status codes are
// authoritative when present; message probing covers the error shapes the
// SDK surfaces without a code.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureUnknown
	}
	var contract *ContractError
	if errors.As(err, &contract) {
		return FailureContract
	}
	var local *LocalError
	if errors.As(err, &local) {
		return FailureLocal
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 500, 503:
			return FailureTransient
		case 401, 403:
			return FailureAuth
		case 429:
			return FailureQuota
		case 400:
			return FailureContract
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNAVAILABLE"), strings.Contains(msg, "overloaded"):
		return FailureTransient
	case strings.Contains(msg, "PERMISSION_DENIED"), strings.Contains(msg, "billing"):
		return FailureAuth
	case strings.Contains(msg, "RESOURCE_EXHAUSTED"):
		return FailureQuota
	}
	return FailureUnknown
}

// IsTransient reports whether err should be retried under the shared
// policy.
func IsTransient(err error) bool {
	return Classify(err) == FailureTransient
}

// Backoff implements the shared exponential-backoff retry policy. Sleep is
// injectable so tests can observe delays without waiting for them.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	Sleep       func(ctx context.Context, d time.Duration) error
}

// NewBackoff builds a Backoff from the retry configuration, filling any
// zero values with the reference policy (5 attempts, 1s base, doubling).
func NewBackoff(cfg Retry) *Backoff {
	b := &Backoff{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   time.Duration(cfg.BaseDelayMS) * time.Millisecond,
		Factor:      cfg.Factor,
	}
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = 5
	}
	if b.BaseDelay <= 0 {
		b.BaseDelay = time.Second
	}
	if b.Factor <= 1 {
		b.Factor = 2.0
	}
	return b
}

func (b *Backoff) sleep(ctx context.Context, d time.Duration) error {
	if b.Sleep != nil {
		return b.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry runs op, retrying transient failures with exponentially growing
// delays until the attempt budget is exhausted. Any non-transient error is
// returned immediately. The sleep honors context cancellation, so a
// backoff wait in one stage never blocks cancellation of that stage.
func (b *Backoff) Retry(ctx context.Context, op func(ctx context.Context) error) error {
	delay := b.BaseDelay
	var err error
	for attempt := 1; attempt <= b.MaxAttempts; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if !IsTransient(err) || attempt == b.MaxAttempts {
			return err
		}
		if sleepErr := b.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		delay = time.Duration(float64(delay) * b.Factor)
	}
	return err
}

// UserMessage translates a stage failure into the single user-facing
// message the UI shows for that stage.
func UserMessage(err error) string {
	switch Classify(err) {
	case FailureAuth:
		return "Permission denied: the configured API key cannot access this model. Reconnect a key from a project with billing enabled."
	case FailureQuota:
		return "Quota exhausted for the configured API key. Try again later or raise the project quota."
	case FailureContract:
		var contract *ContractError
		if errors.As(err, &contract) {
			return contract.Reason
		}
		return "The model returned an unusable response. Please try again."
	case FailureTransient:
		return "The model is overloaded. The request was retried and still failed; try again in a moment."
	case FailureLocal:
		return "The uploaded media could not be read. Re-upload the file and try again."
	default:
		return "An error occurred. Please try again later."
	}
}
