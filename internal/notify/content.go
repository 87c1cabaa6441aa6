package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"bloodlink/pkg/types"
)

//go:embed templates
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type emailData struct {
	BloodType    types.BloodType
	Units        int
	HospitalName string
	Urgency      string
	RequestURL   string
}

type content struct {
	EmailSubject string
	EmailHTML    string
	PushTitle    string
	PushBody     string
	PushData     map[string]string
}

// RequestURL builds the deep link to a request's detail page.
func RequestURL(baseURL, requestID string) string {
	return strings.TrimRight(baseURL, "/") + "/requests/" + url.PathEscape(requestID)
}

func renderContent(baseURL string, req *types.BloodRequest) (*content, error) {
	var buf bytes.Buffer
	err := emailTemplates.ExecuteTemplate(&buf, "email.request", emailData{
		BloodType:    req.BloodType,
		Units:        req.Units,
		HospitalName: req.HospitalName,
		Urgency:      req.Urgency,
		RequestURL:   RequestURL(baseURL, req.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render request email: %w", err)
	}

	return &content{
		EmailSubject: fmt.Sprintf("URGENT: %s Blood Needed Nearby!", req.BloodType),
		EmailHTML:    buf.String(),
		PushTitle:    fmt.Sprintf("Urgent: %s Blood Needed!", req.BloodType),
		PushBody:     strconv.Itoa(req.Units) + " units required at " + req.HospitalName + ".",
		PushData: map[string]string{
			"requestId": req.ID,
		},
	}, nil
}
