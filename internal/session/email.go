package session

import "context"

// Email returns the current email verification state.
func (c *Controller) Email() EmailSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return EmailSnapshot{
		Phase:   c.email.phase,
		Loading: c.email.loading,
		Error:   c.email.err,
	}
}

// SendVerificationEmail asks the server to mail a verification code.
// Verified is terminal: re-sending to an already verified address does not
// reset it.
func (c *Controller) SendVerificationEmail(ctx context.Context, email string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	c.mu.Lock()
	c.email.gen++
	gen := c.email.gen
	c.email.loading = true
	c.email.err = ""
	c.mu.Unlock()

	err := c.gw.SendVerificationEmail(ctx, email)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.email.gen {
		if err != nil {
			return err
		}
		return ErrSuperseded
	}
	c.email.loading = false
	if err != nil {
		c.email.err = describe(err)
		return err
	}
	if c.email.phase < EmailSent {
		c.email.phase = EmailSent
	}
	c.logf("session.email_sent", nil)
	return nil
}

// VerifyEmail confirms an emailed code.
func (c *Controller) VerifyEmail(ctx context.Context, code string) error {
	if err := validateCode(code); err != nil {
		return err
	}
	c.mu.Lock()
	c.email.gen++
	gen := c.email.gen
	c.email.loading = true
	c.email.err = ""
	c.mu.Unlock()

	err := c.gw.VerifyEmail(ctx, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.email.gen {
		if err != nil {
			return err
		}
		return ErrSuperseded
	}
	c.email.loading = false
	if err != nil {
		c.email.err = describe(err)
		return err
	}
	c.email.phase = EmailVerified
	c.logf("session.email_verified", nil)
	return nil
}
