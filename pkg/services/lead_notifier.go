package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"silverbot-chat-api/pkg/models"

	"github.com/resendlabs/resend-go"
)

// LeadNotifier はリード獲得の完了を営業担当に通知します。
type LeadNotifier interface {
	NotifyLead(ctx context.Context, capture CapturedLead) error
}

// CapturedLead は記録の書き込み後に通知へ渡される内容です。
type CapturedLead struct {
	CustomerName string
	Contact      string
	Email        string
	Interest     string
	Product      *models.Product
}

// NoopLeadNotifier はメール送信が未設定のときに使います。
type NoopLeadNotifier struct{}

// NotifyLead は何もしません。
func (NoopLeadNotifier) NotifyLead(context.Context, CapturedLead) error { return nil }

// ResendLeadNotifier は Resend API でリード通知メールを送信します。
type ResendLeadNotifier struct {
	client *resend.Client
	from   string
	to     []string
}

// NewResendLeadNotifier は通知を生成します。to はカンマ区切りの宛先です。
func NewResendLeadNotifier(apiKey, from, to string) (*ResendLeadNotifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY is required")
	}
	var recipients []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("LEAD_NOTIFY_TO is required")
	}
	return &ResendLeadNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     recipients,
	}, nil
}

// NotifyLead はリード通知メールを組み立てて送信します。
func (n *ResendLeadNotifier) NotifyLead(_ context.Context, capture CapturedLead) error {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      n.to,
		Subject: fmt.Sprintf("New SilverBot lead: %s", capture.CustomerName),
		Html:    leadEmailHTML(capture),
	}
	if _, err := n.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send lead email via Resend: %w", err)
	}
	return nil
}

func leadEmailHTML(capture CapturedLead) string {
	product := "No specific product"
	if capture.Product != nil {
		product = fmt.Sprintf("%s (%s)", capture.Product.Name, formatPrice(capture.Product.Price))
	}
	email := capture.Email
	if email == "" {
		email = "-"
	}

	var sb strings.Builder
	sb.WriteString("<h2>New chatbot lead</h2><table>")
	rows := [][2]string{
		{"Name", capture.CustomerName},
		{"Phone", capture.Contact},
		{"Email", email},
		{"Interest", capture.Interest},
		{"Product", product},
	}
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("<tr><th align=\"left\">%s</th><td>%s</td></tr>", row[0], html.EscapeString(row[1])))
	}
	sb.WriteString("</table>")
	return sb.String()
}
