package mail

import (
	"bytes"
	_ "embed"
	"html/template"
	"time"
)

// DrowsinessAlertParams fills the drowsiness alert template.
type DrowsinessAlertParams struct {
	UserName   string
	DetectedAt time.Time

	// Vitals captured at detection time, zero when no sensor is attached.
	HeartRate        int
	OxygenSaturation int
}

// VitalsAlertParams fills the abnormal vitals alert template.
type VitalsAlertParams struct {
	UserName         string
	DetectedAt       time.Time
	HeartRate        int
	OxygenSaturation int
	Reason           string
}

var (
	drowsinessTemplate = template.New("drowsinessAlert")
	vitalsTemplate     = template.New("vitalsAlert")
	testMailTemplate   = template.New("testMail")

	//go:embed templates/drowsiness_alert.html
	drowsinessTemplateRaw string
	//go:embed templates/vitals_alert.html
	vitalsTemplateRaw string
	//go:embed templates/test_mail.html
	testMailTemplateRaw string
)

func init() {
	if _, err := drowsinessTemplate.Parse(drowsinessTemplateRaw); err != nil {
		panic(err)
	}
	if _, err := vitalsTemplate.Parse(vitalsTemplateRaw); err != nil {
		panic(err)
	}
	if _, err := testMailTemplate.Parse(testMailTemplateRaw); err != nil {
		panic(err)
	}
}

func render(t *template.Template, p any) (string, error) {
	b := bytes.Buffer{}
	err := t.Execute(&b, p)
	return b.String(), err
}

// RenderDrowsinessAlert builds the alert mail sent when the detector fires.
func RenderDrowsinessAlert(p DrowsinessAlertParams) (Message, error) {
	body, err := render(drowsinessTemplate, struct {
		DrowsinessAlertParams
		Timestamp string
	}{p, p.DetectedAt.Format("2006-01-02 15:04:05")})
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: "Driver Drowsiness Alert", Body: body, HTML: true}, nil
}

// RenderVitalsAlert builds the alert mail for abnormal vital signs.
func RenderVitalsAlert(p VitalsAlertParams) (Message, error) {
	body, err := render(vitalsTemplate, struct {
		VitalsAlertParams
		Timestamp string
	}{p, p.DetectedAt.Format("2006-01-02 15:04:05")})
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: "Driver Assistant Alert - Vital Signs", Body: body, HTML: true}, nil
}

// RenderTestMail builds the short self-addressed mail used by the
// configuration probe and the send-test command.
func RenderTestMail(recipient string) (Message, error) {
	body, err := render(testMailTemplate, struct {
		Recipient string
		Timestamp string
	}{recipient, time.Now().Format("2006-01-02 15:04:05")})
	if err != nil {
		return Message{}, err
	}
	return Message{Subject: "Driver Assistant Test Email", Body: body, HTML: true}, nil
}
