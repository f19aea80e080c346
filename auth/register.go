package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jmcleod/facelock/face"
	"github.com/jmcleod/facelock/internal/util"
	"github.com/jmcleod/facelock/liveness"
	"github.com/jmcleod/facelock/totp"
)

// Enrollment is the one-time output of a successful registration. The secret
// and backup codes are shown to the user exactly once; only hashes and sealed
// copies persist, so nothing here can be reconstructed later.
type Enrollment struct {
	Secret          string
	ProvisioningURI string
	BackupCodes     []string
}

// Register enrolls a new user. Face samples are captured only while the
// accumulated liveness evidence already passes all signals, so a photo held
// up during enrollment cannot seed the reference set.
func (c *Coordinator) Register(ctx context.Context, username, password string, frames face.FrameStream) (*Enrollment, error) {
	username = util.Normalize(strings.TrimSpace(username))
	password = util.Normalize(password)
	if username == "" {
		return nil, errors.New("username required")
	}
	if password == "" {
		return nil, errors.New("password required")
	}

	release, err := c.store.LockUser(ctx, username)
	if err != nil {
		return nil, err
	}
	defer release()

	log := c.logger.With("username", username)

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	samples, verdict, err := c.captureSamples(attemptCtx, frames)
	if err != nil {
		if ctx.Err() != nil {
			log.Info("registration aborted by caller", "err", ctx.Err())
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("registration denied", "reason", ReasonAttemptTimeout)
			return nil, &Denial{Reason: ReasonAttemptTimeout, Diagnostics: "capture exceeded " + c.cfg.AttemptTimeout.String()}
		}
		return nil, fmt.Errorf("capturing enrollment samples: %w", err)
	}
	if !verdict.Live {
		log.Warn("registration denied", "reason", ReasonSpoofSuspected, "failed", verdict.Failed)
		return nil, &Denial{Reason: ReasonSpoofSuspected, Diagnostics: fmt.Sprintf("failed signals: %v", verdict.Failed)}
	}
	if len(samples) < RegistrationSamples {
		log.Warn("registration denied", "reason", ReasonRegistrationIncomplete, "samples", len(samples))
		return nil, &Denial{
			Reason:      ReasonRegistrationIncomplete,
			Diagnostics: fmt.Sprintf("captured %d of %d samples", len(samples), RegistrationSamples),
		}
	}

	secret, err := totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generating totp secret: %w", err)
	}
	backupCodes, err := totp.GenerateBackupCodes()
	if err != nil {
		return nil, fmt.Errorf("generating backup codes: %w", err)
	}

	if err := c.store.Enroll(username, password, samples, secret, backupCodes); err != nil {
		return nil, fmt.Errorf("enrolling %q: %w", username, err)
	}

	log.Info("registration succeeded", "samples", len(samples))
	return &Enrollment{
		Secret:          secret,
		ProvisioningURI: totp.ProvisioningURL(secret, username),
		BackupCodes:     backupCodes,
	}, nil
}

// captureSamples feeds frames to a fresh liveness engine and collects
// embeddings once the running verdict is affirmative, stopping at the sample
// count or the frame budget.
func (c *Coordinator) captureSamples(ctx context.Context, frames face.FrameStream) ([][]float64, liveness.Result, error) {
	engine := liveness.NewEngine(c.cfg.Liveness, c.classifier)
	var samples [][]float64

	for n := 0; n < c.cfg.FrameBudget && len(samples) < RegistrationSamples; n++ {
		frame, err := frames.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, liveness.Result{}, err
		}

		detections, err := c.provider.Detect(ctx, frame)
		if err != nil {
			return nil, liveness.Result{}, err
		}
		det, ok := largestDetection(detections)
		if !ok {
			continue
		}

		engine.Observe(frame, det)

		if len(det.Embedding) > 0 && engine.Verdict().Live {
			samples = append(samples, det.Embedding)
		}
	}

	return samples, engine.Verdict(), nil
}
