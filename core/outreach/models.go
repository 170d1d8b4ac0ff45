package outreach

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/billing"
	"github.com/clubemanager/backend/core/member"
)

// Outreach channels.
const (
	ChannelEmail = "email"
	ChannelChat  = "chat"
	ChannelSMS   = "sms"
)

var AllChannels = []string{ChannelEmail, ChannelChat, ChannelSMS}

// Placeholders replaced when rendering a template. They come verbatim from
// the club's message templates, hence the Portuguese names.
const (
	PlaceholderName     = "{nome}"
	PlaceholderAmount   = "{valor}"
	PlaceholderDaysLate = "{dias_atraso}"
	PlaceholderDueDate  = "{data_vencimento}"
	PlaceholderCategory = "{categoria}"
)

// dueDateLayout renders due dates as dd/mm/yyyy, as the club writes them.
const dueDateLayout = "02/01/2006"

// Template is an overdue notice template for one channel. Subject is only
// meaningful for the email channel.
type Template struct {
	Channel   string    `json:"channel"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// UpdateTemplate replaces the template of a channel.
type UpdateTemplate struct {
	Subject string `json:"subject"`
	Body    string `json:"body" validate:"required"`
}

func (ut *UpdateTemplate) Validate(validate *validator.Validate) error {
	ut.Subject = core.CleanString(ut.Subject)
	return validate.Struct(ut)
}

// Notice is a rendered overdue message. Building a Notice never sends
// anything; delivery is out of scope.
type Notice struct {
	Channel   string `json:"channel"`
	DueID     string `json:"due_id"`
	MemberID  string `json:"member_id"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
}

// Build renders a template for one member and due. Unknown placeholders are
// left as-is; day counts never go negative.
func Build(tpl Template, mbr member.Member, due billing.Due, asOf time.Time) Notice {
	replacer := newReplacer(mbr, due, asOf)

	notice := Notice{
		Channel:  tpl.Channel,
		DueID:    due.ID,
		MemberID: mbr.ID,
		Body:     replacer.Replace(tpl.Body),
	}
	if tpl.Channel == ChannelEmail {
		notice.Subject = replacer.Replace(tpl.Subject)
		notice.Recipient = mbr.Email
	} else {
		notice.Recipient = mbr.Phone
	}
	return notice
}

func newReplacer(mbr member.Member, due billing.Due, asOf time.Time) *strings.Replacer {
	return strings.NewReplacer(
		PlaceholderName, mbr.Name,
		PlaceholderAmount, due.Total().StringFixed(2),
		PlaceholderDaysLate, strconv.Itoa(due.DaysLate(asOf)),
		PlaceholderDueDate, due.DueDate.Format(dueDateLayout),
		PlaceholderCategory, member.CategoryLabel(mbr.Category),
	)
}
