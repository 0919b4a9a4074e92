package notifier

import "log"

// Notifier abstracts the delivery channel (email/SMS later).
type Notifier interface {
	Notify(subject, message string) error
}

// ConsoleNotifier logs notifications; stands in until a mail provider
// is wired up.
type ConsoleNotifier struct{}

func NewConsole() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (c *ConsoleNotifier) Notify(subject, message string) error {
	log.Printf("[notify] %s :: %s", subject, message)
	return nil
}
