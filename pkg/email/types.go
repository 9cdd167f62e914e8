package email

// Message is a single notification. Urgent messages carry high-priority
// headers so mail clients surface them first.
type Message struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
	Urgent   bool
}
