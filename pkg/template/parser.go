// parser.go — Example template and record generation.
package template

// GetExampleJSON returns a sample template.json and record.json for
// cardstencil init. The template expects its base document next to it as
// card_base.pdf.
func GetExampleJSON() (templateJSON, recordJSON string) {
	templateJSON = `{
  "basePdf": "card_base.pdf",
  "schemas": [
    [
      {
        "name": "profile_photo",
        "type": "image",
        "position": { "x": 8, "y": 22 },
        "width": 26,
        "shape": "circle",
        "borderWidth": 2,
        "borderColor": "#1f4e79"
      },
      {
        "name": "full_name",
        "type": "text",
        "position": { "x": 66, "y": 24 },
        "fontSize": 14,
        "bold": true,
        "alignment": "center"
      },
      {
        "name": "membership_id",
        "type": "text",
        "position": { "x": 66, "y": 36 },
        "fontSize": 10,
        "fontColor": "#555555",
        "alignment": "center"
      },
      {
        "name": "designation",
        "type": "text",
        "position": { "x": 40, "y": 50 },
        "fontSize": 9
      },
      {
        "name": "district",
        "type": "text",
        "position": { "x": 40, "y": 58 },
        "fontSize": 9
      },
      {
        "name": "area_of_interest",
        "type": "text",
        "position": { "x": 40, "y": 66 },
        "fontSize": 9,
        "italic": true
      },
      {
        "name": "qr_code",
        "type": "qrcode",
        "position": { "x": 76, "y": 62 },
        "width": 60,
        "unit": "pt"
      }
    ]
  ]
}`

	recordJSON = `{
  "id": "MSL-2024-0001",
  "values": {
    "full_name": "Aisha Khan",
    "membership_id": "MSL-2024-0001",
    "designation": "Volunteer",
    "district": "Lahore",
    "area_of_interest": "Public Health",
    "profile_photo": ""
  }
}`
	return
}
