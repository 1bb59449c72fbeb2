package session

import (
	"context"

	"dukan.org/internal/gateway"
)

// TwoFactor returns the current enrollment state.
func (c *Controller) TwoFactor() TwoFactorSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := TwoFactorSnapshot{
		Phase:   c.twoFactor.phase,
		Loading: c.twoFactor.loading,
		Error:   c.twoFactor.err,
	}
	if c.twoFactor.setup != nil {
		s := *c.twoFactor.setup
		snap.Setup = &s
	}
	return snap
}

// Setup2FA requests fresh enrollment material. Issuing a new setup
// supersedes any still-pending one: a late response to the earlier call is
// discarded, and prior verification progress is void because the secret it
// was confirmed against no longer applies.
func (c *Controller) Setup2FA(ctx context.Context) (gateway.TwoFactorSetup, error) {
	c.mu.Lock()
	c.twoFactor.gen++
	gen := c.twoFactor.gen
	c.twoFactor.loading = true
	c.twoFactor.err = ""
	c.mu.Unlock()

	setup, err := c.gw.Setup2FA(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.twoFactor.gen {
		if err != nil {
			return gateway.TwoFactorSetup{}, err
		}
		return gateway.TwoFactorSetup{}, ErrSuperseded
	}
	c.twoFactor.loading = false
	if err != nil {
		c.twoFactor.err = describe(err)
		return gateway.TwoFactorSetup{}, err
	}
	s := setup
	c.twoFactor.setup = &s
	c.twoFactor.phase = TwoFactorAwaitingCode
	c.logf("session.2fa_setup", nil)
	return setup, nil
}

// Verify2FA confirms a code against the pending setup secret. A rejected
// code leaves the enrollment awaiting another attempt.
func (c *Controller) Verify2FA(ctx context.Context, code string) error {
	if err := validateCode(code); err != nil {
		return err
	}
	c.mu.Lock()
	if c.twoFactor.phase < TwoFactorAwaitingCode || c.twoFactor.setup == nil {
		c.mu.Unlock()
		return ErrNoSetup
	}
	c.twoFactor.gen++
	gen := c.twoFactor.gen
	c.twoFactor.loading = true
	c.twoFactor.err = ""
	c.mu.Unlock()

	err := c.gw.Verify2FA(ctx, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.twoFactor.gen {
		if err != nil {
			return err
		}
		return ErrSuperseded
	}
	c.twoFactor.loading = false
	if err != nil {
		c.twoFactor.err = describe(err)
		return err
	}
	if c.twoFactor.phase < TwoFactorVerified {
		c.twoFactor.phase = TwoFactorVerified
	}
	c.logf("session.2fa_verified", nil)
	return nil
}

// Enable2FA switches two-factor on. Enabling is a distinct step that
// requires a verified enrollment first.
func (c *Controller) Enable2FA(ctx context.Context) error {
	c.mu.Lock()
	if c.twoFactor.phase < TwoFactorVerified {
		c.mu.Unlock()
		return ErrNotVerified
	}
	c.twoFactor.gen++
	gen := c.twoFactor.gen
	c.twoFactor.loading = true
	c.twoFactor.err = ""
	c.mu.Unlock()

	err := c.gw.Enable2FA(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.twoFactor.gen {
		if err != nil {
			return err
		}
		return ErrSuperseded
	}
	c.twoFactor.loading = false
	if err != nil {
		c.twoFactor.err = describe(err)
		return err
	}
	c.twoFactor.phase = TwoFactorEnabled
	c.logf("session.2fa_enabled", nil)
	return nil
}

// Disable2FA switches two-factor off and discards the enrollment. Idempotent
// from any prior state; the machine always lands on Idle with no setup, so a
// partial disable can never leave verification dangling.
func (c *Controller) Disable2FA(ctx context.Context) error {
	c.mu.Lock()
	c.twoFactor.gen++
	gen := c.twoFactor.gen
	c.twoFactor.loading = true
	c.twoFactor.err = ""
	c.mu.Unlock()

	err := c.gw.Disable2FA(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.twoFactor.gen {
		if err != nil {
			return err
		}
		return ErrSuperseded
	}
	c.twoFactor.loading = false
	if err != nil {
		c.twoFactor.err = describe(err)
		return err
	}
	c.twoFactor.phase = TwoFactorIdle
	c.twoFactor.setup = nil
	c.logf("session.2fa_disabled", nil)
	return nil
}
