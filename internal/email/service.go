package email

import (
	"fmt"
	"net/smtp"
)

// Service sends transactional email via SMTP.
type Service struct {
	host string
	port string
	from string
}

func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// OrderItem is one line of the confirmation email.
type OrderItem struct {
	Name      string
	Quantity  int
	UnitPrice float64
}

// SendOrderConfirmation sends the post-checkout confirmation email.
func (s *Service) SendOrderConfirmation(to, orderNumber string, total float64, currency string, items []OrderItem) error {
	subject := fmt.Sprintf("Order confirmed - %s", orderNumber)
	body := BuildOrderConfirmationBody(orderNumber, total, currency, items)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
