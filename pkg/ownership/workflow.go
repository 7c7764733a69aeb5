// Package ownership implements the challenge/response protocol that gates
// registrations onto the chain.
//
// A client asks for a challenge bound to its address, signs it with the
// address's key, and submits the signature together with the payload within
// Window. Only verified submissions reach the chain.
package ownership

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/IsaacBoateng/Private-blockchain/pkg/block"
	"github.com/IsaacBoateng/Private-blockchain/pkg/wallet"
)

const (
	// Window is how long a challenge stays redeemable.
	Window = 300 * time.Second
	// DefaultPurpose is the trailing tag of every challenge.
	DefaultPurpose = "starRegistry"

	windowSeconds = int64(Window / time.Second)
	// maxElapsed is reported for challenges too old to express as a Duration.
	maxElapsed = time.Duration(math.MaxInt64)
)

// Appender is the part of the chain the workflow writes to.
type Appender interface {
	Append(ctx context.Context, payload any) (*block.Block, error)
}

// Registration is the payload recorded for a verified submission.
type Registration struct {
	Address string `json:"address"`
	Star    any    `json:"star"`
}

// Challenge is a parsed challenge message.
type Challenge struct {
	Address  string
	IssuedAt time.Time
	Purpose  string
}

func (c Challenge) String() string {
	return fmt.Sprintf("%s:%d:%s", c.Address, c.IssuedAt.Unix(), c.Purpose)
}

type Workflow struct {
	chain    Appender
	verifier wallet.Verifier
	clock    func() time.Time
	purpose  string
	guard    ReplayGuard
	logger   *slog.Logger
}

type Option func(*Workflow)

func WithClock(clock func() time.Time) Option {
	return func(w *Workflow) { w.clock = clock }
}

// WithPurpose changes the challenge tag from DefaultPurpose.
func WithPurpose(purpose string) Option {
	return func(w *Workflow) { w.purpose = purpose }
}

// WithReplayGuard makes every challenge redeemable at most once.
func WithReplayGuard(g ReplayGuard) Option {
	return func(w *Workflow) { w.guard = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

func NewWorkflow(chain Appender, verifier wallet.Verifier, opts ...Option) *Workflow {
	w := &Workflow{
		chain:    chain,
		verifier: verifier,
		clock:    time.Now,
		purpose:  DefaultPurpose,
		logger:   slog.Default().With("component", "ownership"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// IssueChallenge returns the message the owner of address must sign.
func (w *Workflow) IssueChallenge(address string) string {
	return Challenge{Address: address, IssuedAt: w.clock(), Purpose: w.purpose}.String()
}

// ParseChallenge splits message into its address, timestamp and purpose.
// The address is everything before the last two separators.
func ParseChallenge(message string) (Challenge, error) {
	last := strings.LastIndexByte(message, ':')
	if last < 0 {
		return Challenge{}, malformed(message, "missing separators")
	}
	mid := strings.LastIndexByte(message[:last], ':')
	if mid < 0 {
		return Challenge{}, malformed(message, "missing separators")
	}

	address, tsText, purpose := message[:mid], message[mid+1:last], message[last+1:]
	if address == "" {
		return Challenge{}, malformed(message, "empty address")
	}
	ts, err := strconv.ParseInt(tsText, 10, 64)
	if err != nil {
		return Challenge{}, malformed(message, fmt.Sprintf("timestamp %q is not a unix time", tsText))
	}
	return Challenge{Address: address, IssuedAt: time.Unix(ts, 0), Purpose: purpose}, nil
}

func malformed(message, reason string) error {
	return &MalformedMessageError{Message: message, Reason: reason}
}

// VerifyAndSubmit checks that message is a live challenge for address signed
// by it, then appends payload to the chain as a Registration. Chain errors
// are returned unchanged.
func (w *Workflow) VerifyAndSubmit(ctx context.Context, address, message, signature string, payload any) (*block.Block, error) {
	ch, err := ParseChallenge(message)
	if err != nil {
		w.logger.InfoContext(ctx, "submission rejected", "reason", "malformed", "address", address)
		return nil, err
	}
	if ch.Address != address {
		return nil, malformed(message, "challenge was issued to a different address")
	}
	if ch.Purpose != w.purpose {
		return nil, malformed(message, fmt.Sprintf("purpose %q, want %q", ch.Purpose, w.purpose))
	}

	// Whole seconds, matching the challenge's resolution. The comparison is
	// done on seconds so ancient timestamps cannot overflow a Duration.
	now, issued := w.clock().Unix(), ch.IssuedAt.Unix()
	if issued > now {
		return nil, malformed(message, "timestamp is in the future")
	}
	secs := now - issued
	if secs < 0 || secs >= windowSeconds {
		elapsed := maxElapsed
		if secs >= 0 && secs < int64(maxElapsed/time.Second) {
			elapsed = time.Duration(secs) * time.Second
		}
		w.logger.InfoContext(ctx, "submission rejected", "reason", "expired", "address", address, "elapsed", elapsed)
		return nil, &ExpiredError{Elapsed: elapsed, Window: Window}
	}
	elapsed := time.Duration(secs) * time.Second

	if err := w.verifier.Verify(address, message, signature); err != nil {
		w.logger.WarnContext(ctx, "submission rejected", "reason", "signature", "address", address, "error", err)
		return nil, &SignatureError{Address: address, Err: err}
	}

	if w.guard != nil {
		fresh, err := w.guard.Claim(ctx, message, Window-elapsed)
		if err != nil {
			return nil, fmt.Errorf("replay guard: %w", err)
		}
		if !fresh {
			w.logger.WarnContext(ctx, "submission rejected", "reason", "reused", "address", address)
			return nil, ErrChallengeReused
		}
	}

	b, err := w.chain.Append(ctx, Registration{Address: address, Star: payload})
	if err != nil {
		// Nothing was recorded, so the challenge stays redeemable.
		if w.guard != nil {
			if rerr := w.guard.Release(ctx, message); rerr != nil {
				w.logger.WarnContext(ctx, "replay guard release failed", "address", address, "error", rerr)
			}
		}
		return nil, err
	}
	w.logger.InfoContext(ctx, "registration recorded", "address", address, "height", b.Height)
	return b, nil
}
