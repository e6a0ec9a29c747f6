package mailer

import "fmt"

// confirmationHTML renders the confirmation email body. Kept as inline
// styles so it survives the common webmail CSS strippers.
func confirmationHTML(confirmURL string) string {
	return fmt.Sprintf(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333; text-align: center;">Welcome to our newsletter!</h2>
  <p style="color: #666; line-height: 1.6;">
    Thank you for subscribing to our newsletter. To complete your subscription, please click the button below:
  </p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="%s"
       style="background-color: #000; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">
      Confirm Subscription
    </a>
  </div>
  <p style="color: #666; line-height: 1.6; font-size: 14px; text-align: center;">
    If you didn't request this subscription, you can safely ignore this email.
  </p>
  <p style="color: #999; font-size: 12px; text-align: center; margin-top: 30px;">
    This link will expire in 24 hours.
  </p>
</div>`, confirmURL)
}

// confirmationText is the plain-text alternative part.
func confirmationText(confirmURL string) string {
	return fmt.Sprintf(`Welcome to our newsletter!

Thank you for subscribing. To complete your subscription, open this link:

%s

If you didn't request this subscription, you can safely ignore this email.
This link will expire in 24 hours.
`, confirmURL)
}
