package email

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
)

// SendEmail is our placeholder email function.
// Instead of sending a real email, we log it so the flow can be followed
// without a mail provider.
func SendEmail(to string, subject string, body string) error {
	if to == "" {
		return fmt.Errorf("email: empty recipient for %q", subject)
	}

	log.Println("====================================================")
	log.Printf("--- NEW EMAIL (PLACEHOLDER) ---")
	log.Printf("To: %s", to)
	log.Printf("Subject: %s", subject)
	log.Println("--- Body ---")
	log.Println(body)
	log.Println("====================================================")

	return nil
}

// SendWelcomeEmail greets a freshly signed-up user.
func SendWelcomeEmail(to, name string) error {
	body := fmt.Sprintf("Hi %s,\n\nWelcome to the store! Your account is ready to use.", name)
	return SendEmail(to, "Welcome to the store", body)
}

// SendOrderConfirmation tells the customer their order went through.
func SendOrderConfirmation(to, reference string, total decimal.Decimal, itemCount int) error {
	subject := fmt.Sprintf("Order %s confirmed", reference)
	body := fmt.Sprintf(
		"Thanks for your order!\n\nReference: %s\nItems: %d\nTotal: %s",
		reference, itemCount, total.StringFixed(2),
	)
	return SendEmail(to, subject, body)
}
