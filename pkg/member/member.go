// Package member projects a registered member's profile into the flat
// record a card render consumes.
package member

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/xob0t/CardStencil/pkg/render"
)

// Member is the validated profile owned by the registration system.
type Member struct {
	ID              string `json:"id"`
	MembershipID    string `json:"membership_id"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	WhatsAppNumber  string `json:"whatsapp_number"`
	Designation     string `json:"designation"`
	District        string `json:"district"`
	CompleteAddress string `json:"complete_address"`
	AreaOfInterest  string `json:"area_of_interest"`
	EducationLevel  string `json:"education_level"`
	DegreeInstitute string `json:"degree_institute"`
	ProfilePhotoURL string `json:"profile_photo_url"`
}

// PhotoField is the record key the profile photo is published under.
const PhotoField = "profile_photo"

// Project builds the render record for m. Enumerated values stored as
// snake_case (area_of_interest, education_level) are title-cased; empty
// values are left out so templates report them as unmapped. The
// membership number is the record identifier and the QR code payload.
func Project(m Member) render.Record {
	values := map[string]string{
		"full_name":        m.FullName,
		"membership_id":    m.MembershipID,
		"email":            m.Email,
		"whatsapp_number":  m.WhatsAppNumber,
		"designation":      m.Designation,
		"district":         m.District,
		"complete_address": m.CompleteAddress,
		"area_of_interest": humanize(m.AreaOfInterest),
		"education_level":  humanize(m.EducationLevel),
		"degree_institute": m.DegreeInstitute,
		PhotoField:         m.ProfilePhotoURL,
	}
	for k, v := range values {
		if strings.TrimSpace(v) == "" {
			delete(values, k)
		}
	}
	return render.NewRecord(m.MembershipID, values)
}

// humanize turns "public_health" into "Public Health".
func humanize(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", " "))
	return cases.Title(language.English).String(s)
}
