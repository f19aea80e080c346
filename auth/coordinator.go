// Package auth orchestrates the three-factor local authentication flow:
// password, live face match, and time-based one-time code. It owns the
// fail-closed ordering of the checks, the denial taxonomy, and the ephemeral
// session grants.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmcleod/facelock/credstore"
	"github.com/jmcleod/facelock/face"
	"github.com/jmcleod/facelock/internal/util"
	"github.com/jmcleod/facelock/liveness"
	"github.com/jmcleod/facelock/storage"
	"github.com/jmcleod/facelock/totp"
)

const (
	// DefaultSessionTimeout bounds a grant's lifetime.
	DefaultSessionTimeout = 5 * time.Minute

	// DefaultAttemptTimeout bounds the capture and code-entry phases of one
	// attempt. Hitting it is a counted failure.
	DefaultAttemptTimeout = 30 * time.Second

	// DefaultFrameBudget caps how many frames one attempt may consume.
	DefaultFrameBudget = 50

	// RegistrationSamples is how many face embeddings enrollment captures.
	RegistrationSamples = 5
)

// Config carries the attempt-level tunables.
type Config struct {
	MatchThreshold float64
	Liveness       liveness.Config
	AttemptTimeout time.Duration
	FrameBudget    int
	SessionTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MatchThreshold: face.DefaultMatchThreshold,
		Liveness:       liveness.DefaultConfig(),
		AttemptTimeout: DefaultAttemptTimeout,
		FrameBudget:    DefaultFrameBudget,
		SessionTimeout: DefaultSessionTimeout,
	}
}

// Coordinator runs authentication attempts against the credential store and
// the face provider. Attempts for the same user are serialized; the denial
// counter and lockout policy live in the store.
type Coordinator struct {
	cfg        Config
	store      *credstore.Store
	provider   face.Provider
	classifier liveness.TextureClassifier
	logger     *slog.Logger
	sessions   *sessionTable
	now        func() time.Time
}

// Option adjusts Coordinator construction.
type Option func(*Coordinator)

// WithLogger sets the audit logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithClock substitutes the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithTextureClassifier replaces the default heuristic texture model, e.g.
// with a trained model loaded from disk.
func WithTextureClassifier(tc liveness.TextureClassifier) Option {
	return func(c *Coordinator) { c.classifier = tc }
}

// New creates a Coordinator.
func New(store *credstore.Store, provider face.Provider, cfg Config, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		store:    store,
		provider: provider,
		logger:   slog.Default(),
		sessions: newSessionTable(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CodePrompt asks the user for their second-factor code: a 6-digit TOTP code
// or a backup recovery code.
type CodePrompt func(ctx context.Context) (string, error)

// Login runs one full authentication attempt. The checks run in a fixed
// fail-closed order: lockout, password, face match, liveness, code. The first
// failing check denies the attempt and counts toward the lockout; later
// factors are never evaluated. Caller cancellation aborts without counting.
func (c *Coordinator) Login(ctx context.Context, username, password string, frames face.FrameStream, prompt CodePrompt) (*Grant, error) {
	username = util.Normalize(strings.TrimSpace(username))
	password = util.Normalize(password)

	release, err := c.store.LockUser(ctx, username)
	if err != nil {
		return nil, err
	}
	defer release()

	log := c.logger.With("username", username)

	locked, until, err := c.store.CheckLockout(username)
	if errors.Is(err, storage.ErrNotFound) {
		// Burn a hash so an unknown username costs the same as a wrong
		// password for it.
		_, _ = util.HashPassword(password, util.DefaultArgon2idParams())
		if err := c.store.LogAttempt(username, false, string(ReasonBadCredentials)); err != nil {
			return nil, fmt.Errorf("logging attempt: %w", err)
		}
		log.Warn("login denied", "reason", ReasonBadCredentials)
		return nil, &Denial{Reason: ReasonBadCredentials, Diagnostics: "unknown user"}
	}
	if err != nil {
		return nil, fmt.Errorf("checking lockout for %q: %w", username, err)
	}
	if locked {
		if err := c.store.LogAttempt(username, false, string(ReasonLocked)); err != nil {
			return nil, fmt.Errorf("logging attempt: %w", err)
		}
		log.Warn("login denied", "reason", ReasonLocked, "until", until)
		return nil, &Denial{Reason: ReasonLocked, Diagnostics: "locked until " + until.Format(time.RFC3339)}
	}

	ok, err := c.store.VerifyPassword(username, password)
	if err != nil {
		return nil, fmt.Errorf("verifying password for %q: %w", username, err)
	}
	if !ok {
		return nil, c.deny(log, username, ReasonBadCredentials, "password mismatch")
	}

	refs, err := c.store.Embeddings(username)
	if err != nil {
		return nil, fmt.Errorf("loading embeddings for %q: %w", username, err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	scan, err := c.scanFrames(attemptCtx, refs, frames)
	if err != nil {
		if denyErr, handled := c.classifyAbort(ctx, log, username, err); handled {
			return nil, denyErr
		}
		return nil, fmt.Errorf("scanning frames for %q: %w", username, err)
	}
	if !scan.matched {
		diag := "no face detected"
		if scan.sawFace {
			diag = fmt.Sprintf("best distance %.3f above threshold %.3f", scan.bestDistance, c.cfg.MatchThreshold)
		}
		return nil, c.deny(log, username, ReasonFaceNotRecognized, diag)
	}
	if verdict := scan.verdict; !verdict.Live {
		return nil, c.deny(log, username, ReasonSpoofSuspected, fmt.Sprintf("failed signals: %v", verdict.Failed))
	}

	code, err := prompt(attemptCtx)
	if err != nil {
		if denyErr, handled := c.classifyAbort(ctx, log, username, err); handled {
			return nil, denyErr
		}
		return nil, fmt.Errorf("prompting for code: %w", err)
	}
	// The deadline binds even when the prompt ignores its context: a code
	// typed after the attempt expired must not be honored.
	if attemptCtx.Err() != nil {
		if denyErr, handled := c.classifyAbort(ctx, log, username, attemptCtx.Err()); handled {
			return nil, denyErr
		}
	}
	if err := c.verifySecondFactor(log, username, code); err != nil {
		return nil, err
	}

	if err := c.store.RecordSuccess(username); err != nil {
		return nil, fmt.Errorf("recording success for %q: %w", username, err)
	}
	grant := c.sessions.issue(username, c.now(), c.cfg.SessionTimeout)
	log.Info("login succeeded", "grant_id", grant.ID, "expires_at", grant.ExpiresAt)
	return grant, nil
}

// classifyAbort separates caller cancellation (not counted) from the attempt
// timeout (counted as a failure).
func (c *Coordinator) classifyAbort(ctx context.Context, log *slog.Logger, username string, err error) (error, bool) {
	if ctx.Err() != nil {
		log.Info("login aborted by caller", "err", ctx.Err())
		return ctx.Err(), true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return c.deny(log, username, ReasonAttemptTimeout, "attempt exceeded "+c.cfg.AttemptTimeout.String()), true
	}
	return nil, false
}

// deny counts the failure, logs it, and wraps the reason in a Denial.
func (c *Coordinator) deny(log *slog.Logger, username string, reason Reason, diag string) error {
	lockedNow, err := c.store.RecordFailure(username, string(reason))
	if err != nil {
		return fmt.Errorf("recording failure for %q: %w", username, err)
	}
	log.Warn("login denied", "reason", reason, "locked_now", lockedNow)
	return &Denial{Reason: reason, Diagnostics: diag}
}

// verifySecondFactor checks a TOTP code, falling back to single-use backup
// codes, and enforces the one-use-per-step replay guard.
func (c *Coordinator) verifySecondFactor(log *slog.Logger, username, code string) error {
	code = strings.TrimSpace(code)
	if strings.Contains(code, "-") {
		redeemed, err := c.store.ConsumeBackupCode(username, code)
		if err != nil {
			return fmt.Errorf("redeeming backup code for %q: %w", username, err)
		}
		if !redeemed {
			return c.deny(log, username, ReasonBadTOTP, "backup code not redeemable")
		}
		log.Info("backup code redeemed")
		return nil
	}

	secret, err := c.store.TOTPSecret(username)
	if err != nil {
		return fmt.Errorf("loading totp secret for %q: %w", username, err)
	}
	step, ok := totp.Verify(secret.String(), code, c.now())
	secret.Destroy()
	if !ok {
		return c.deny(log, username, ReasonBadTOTP, "code mismatch")
	}

	fresh, err := c.store.ConsumeTOTPStep(username, step)
	if err != nil {
		return fmt.Errorf("consuming totp step for %q: %w", username, err)
	}
	if !fresh {
		return c.deny(log, username, ReasonTOTPReplayed, fmt.Sprintf("step %d already used", step))
	}
	return nil
}

type scanResult struct {
	matched      bool
	sawFace      bool
	bestDistance float64
	verdict      liveness.Result
}

// scanFrames pulls frames until the stream ends, the budget is spent, or the
// match and liveness evidence are both conclusive, feeding every frame to the
// liveness engine and the matcher.
func (c *Coordinator) scanFrames(ctx context.Context, refs [][]float64, frames face.FrameStream) (scanResult, error) {
	engine := liveness.NewEngine(c.cfg.Liveness, c.classifier)
	res := scanResult{bestDistance: -1}

	for n := 0; n < c.cfg.FrameBudget; n++ {
		frame, err := frames.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}

		detections, err := c.provider.Detect(ctx, frame)
		if err != nil {
			return res, err
		}
		det, ok := largestDetection(detections)
		if !ok {
			continue
		}
		res.sawFace = true

		engine.Observe(frame, det)

		if len(det.Embedding) > 0 {
			matched, dist := face.Match(refs, det.Embedding, c.cfg.MatchThreshold)
			if res.bestDistance < 0 || dist < res.bestDistance {
				res.bestDistance = dist
			}
			if matched {
				res.matched = true
			}
		}

		if res.matched {
			if v := engine.Verdict(); v.Live {
				res.verdict = v
				return res, nil
			}
		}
	}

	res.verdict = engine.Verdict()
	return res, nil
}

// largestDetection picks the dominant face when several are in frame.
func largestDetection(dets []face.Detection) (face.Detection, bool) {
	if len(dets) == 0 {
		return face.Detection{}, false
	}
	best := dets[0]
	bestArea := area(best.Box)
	for _, d := range dets[1:] {
		if a := area(d.Box); a > bestArea {
			best, bestArea = d, a
		}
	}
	return best, true
}

func area(b face.Box) int {
	return (b.Right - b.Left) * (b.Bottom - b.Top)
}
