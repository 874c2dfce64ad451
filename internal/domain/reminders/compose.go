package reminders

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/nleeper/goment"

	"medicine-reminder/internal/domain/medicines"
	"medicine-reminder/internal/ports/notify"
)

const subject = "Medicine Reminder"

var htmlBody = template.Must(template.New("reminder").Parse(`<h2>Medicine Reminder</h2>
<p>It's time to take your medicine:</p>
<ul>
  <li>Name: {{.Name}}</li>
  <li>Tablets: {{.Tablets}}</li>
  <li>Time: {{.When}}</li>
</ul>
`))

// Compose arma el mensaje para una entrada. La hora se muestra en loc.
func Compose(m medicines.Medicine, loc *time.Location) notify.Message {
	return composeWith(m, loc, htmlBody)
}

// composeWith deja HTML vacío si la plantilla falla; el envío sigue con el
// cuerpo de texto.
func composeWith(m medicines.Medicine, loc *time.Location, tmpl *template.Template) notify.Message {
	when := FormatWhen(m.Time, loc)
	text := fmt.Sprintf("It's time to take your medicine:\n- Name: %s\n- Tablets: %d\n- Time: %s\n", m.Name, m.Tablets, when)

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, struct {
		Name    string
		Tablets int
		When    string
	}{m.Name, m.Tablets, when})
	if err != nil {
		buf.Reset()
	}

	return notify.Message{
		To:      m.Email,
		Subject: subject,
		HTML:    buf.String(),
		Text:    text,
	}
}

// FormatWhen devuelve algo como "Saturday, June 1, 2030 9:00 AM UTC".
func FormatWhen(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	zone := t.Format("MST")

	g, err := goment.New(t)
	if err != nil {
		return t.Format("Monday, January 2, 2006 3:04 PM") + " " + zone
	}
	return g.Format("LLLL") + " " + zone
}
