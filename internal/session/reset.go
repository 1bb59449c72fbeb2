package session

import "context"

// Reset returns the current password reset state.
func (c *Controller) Reset() ResetSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ResetSnapshot{
		Phase:   c.reset.phase,
		Loading: c.reset.loading,
		Error:   c.reset.err,
	}
}

// RequestPasswordReset asks the server to mail a reset code. A new request
// restarts the flow: progress from any previous code is discarded, since the
// old code no longer matches what the server will accept.
func (c *Controller) RequestPasswordReset(ctx context.Context, email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	c.mu.Lock()
	c.reset.gen++
	gen := c.reset.gen
	c.reset.loading = true
	c.reset.err = ""
	c.mu.Unlock()

	err := c.gw.RequestPasswordReset(ctx, email)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.reset.gen {
		if err != nil {
			return err
		}
		return ErrSuperseded
	}
	c.reset.loading = false
	if err != nil {
		c.reset.err = describe(err)
		return err
	}
	c.reset.phase = ResetRequested
	c.logf("session.reset_requested", nil)
	return nil
}

// VerifyResetCode checks the mailed code. A rejection keeps the flow at
// Requested so the user can retry without starting over. The server may
// treat an accepted code as single-use; callers must not re-verify.
func (c *Controller) VerifyResetCode(ctx context.Context, code string) error {
	if err := validateCode(code); err != nil {
		return err
	}
	c.mu.Lock()
	if c.reset.phase < ResetRequested {
		c.mu.Unlock()
		return ErrNotRequested
	}
	c.reset.gen++
	gen := c.reset.gen
	c.reset.loading = true
	c.reset.err = ""
	c.mu.Unlock()

	err := c.gw.VerifyResetCode(ctx, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.reset.gen {
		if err != nil {
			return err
		}
		return ErrSuperseded
	}
	c.reset.loading = false
	if err != nil {
		c.reset.err = describe(err)
		return err
	}
	if c.reset.phase < ResetCodeVerified {
		c.reset.phase = ResetCodeVerified
	}
	c.logf("session.reset_code_verified", nil)
	return nil
}

// ResetPassword completes the flow with the verified code and a new
// password.
func (c *Controller) ResetPassword(ctx context.Context, code, newPassword string) error {
	if err := validateCode(code); err != nil {
		return err
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	c.mu.Lock()
	if c.reset.phase < ResetCodeVerified {
		c.mu.Unlock()
		return ErrNotRequested
	}
	c.reset.gen++
	gen := c.reset.gen
	c.reset.loading = true
	c.reset.err = ""
	c.mu.Unlock()

	err := c.gw.ResetPassword(ctx, code, newPassword)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.reset.gen {
		if err != nil {
			return err
		}
		return ErrSuperseded
	}
	c.reset.loading = false
	if err != nil {
		c.reset.err = describe(err)
		return err
	}
	c.reset.phase = ResetDone
	c.logf("session.reset_done", nil)
	return nil
}
