package notification

import "html/template"

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #e2e8f0; border-radius: 12px;">
  <h2 style="color: #0284c7; text-align: center;">SmartTicket Rwanda</h2>
  <p>Hello <strong>{{.FullName}}</strong>,</p>
  <p>Thank you for booking your bus ticket with SmartTicket Rwanda. Your trip is confirmed!</p>
  <div style="background-color: #f8fafc; padding: 15px; border-radius: 8px; margin: 20px 0;">
    <h3 style="margin-top: 0;">Trip Summary:</h3>
    <p><strong>Booking ID:</strong> #{{.ID}}</p>
    <p><strong>From:</strong> {{.From}}</p>
    <p><strong>To:</strong> {{.To}}</p>
    <p><strong>Date:</strong> {{.Date}}</p>
    <p><strong>Class:</strong> {{.Class}}</p>
    <p><strong>Total:</strong> {{.Total}}</p>
  </div>
  {{if .HasTicket}}<p>Your ticket is attached to this email as a PDF. Please keep it safe for boarding.</p>
  {{else}}<p>Your ticket can be downloaded from your bookings page.</p>
  {{end}}<p>Safe Travels,<br>The SmartTicket Rwanda Team</p>
</div>`))

var cancellationTemplate = template.Must(template.New("cancellation").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #dc2626;">Booking Cancelled</h2>
  <p>Dear {{.FullName}},</p>
  <p>Your SmartTicket booking has been cancelled as requested.</p>
  <div style="background-color: #fef3c7; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="margin-top: 0;">Cancelled Booking Details:</h3>
    <p><strong>Booking ID:</strong> #{{.ID}}</p>
    <p><strong>Departure:</strong> {{.From}}</p>
    <p><strong>Destination:</strong> {{.To}}</p>
    <p><strong>Travel Date:</strong> {{.Date}}</p>
  </div>
  <p>If you did not request this cancellation, please contact our support team immediately.</p>
  <p>Best regards,<br>SmartTicket Team</p>
</div>`))

type templateData struct {
	ID        int64
	FullName  string
	From      string
	To        string
	Date      string
	Class     string
	Total     string
	HasTicket bool
}
