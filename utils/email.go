package utils

import (
	"booking_manager/config"
	"bytes"
	"fmt"
	"html/template"
	"io"
	"log"
	"strconv"

	"gopkg.in/gomail.v2"
)

// BookingEmailData feeds the booking email templates.
type BookingEmailData struct {
	OrderCode     string
	CustomerName  string
	Slots         string
	TotalAmount   string
	Currency      string
	PaymentMethod string
	RefundAmount  string
	Reason        string
}

func dialer() (*gomail.Dialer, string) {
	port, _ := strconv.Atoi(config.ConfigOr("SMTP_PORT", "587"))
	d := gomail.NewDialer(config.Config("SMTP_HOST"), port, config.Config("SMTP_USERNAME"), config.Config("SMTP_PASSWORD"))
	return d, config.Config("SMTP_FROM")
}

func renderTemplate(name string, data BookingEmailData) (string, error) {
	tmpl, err := template.ParseFiles("templates/" + name)
	if err != nil {
		return "", err
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}

// SendBookingConfirmationEmail sends the paid-booking confirmation with an
// embedded check-in QR. Async; failures are logged, never propagated.
func SendBookingConfirmationEmail(to string, data BookingEmailData) {
	go func() {
		body, err := renderTemplate("booking_confirmation.html", data)
		if err != nil {
			log.Printf("email: render confirmation template: %v", err)
			return
		}

		m := gomail.NewMessage()
		d, from := dialer()
		m.SetHeader("From", from)
		m.SetHeader("To", to)
		m.SetHeader("Subject", "Booking confirmed - "+data.OrderCode)
		m.SetBody("text/html", body)

		qrBytes, err := GenerateQRCode(data.OrderCode, 400)
		if err != nil {
			log.Printf("email: QR for order %s: %v", data.OrderCode, err)
		} else {
			m.Embed("checkin.png", gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(qrBytes)
				return err
			}), gomail.SetHeader(map[string][]string{
				"Content-Type":        {"image/png"},
				"Content-ID":          {"<checkin_qr>"},
				"Content-Disposition": {"inline"},
			}))
		}

		if err := d.DialAndSend(m); err != nil {
			log.Printf("email: send confirmation to %s: %v", to, err)
		}
	}()
}

// SendBookingRefundedEmail tells the customer their late payment was refunded
// because the window was taken. Async, log-only failures.
func SendBookingRefundedEmail(to string, data BookingEmailData) {
	go func() {
		body, err := renderTemplate("booking_refunded.html", data)
		if err != nil {
			log.Printf("email: render refund template: %v", err)
			return
		}

		m := gomail.NewMessage()
		d, from := dialer()
		m.SetHeader("From", from)
		m.SetHeader("To", to)
		m.SetHeader("Subject", fmt.Sprintf("Booking %s refunded", data.OrderCode))
		m.SetBody("text/html", body)

		if err := d.DialAndSend(m); err != nil {
			log.Printf("email: send refund notice to %s: %v", to, err)
		}
	}()
}
