// qr.go — Verification QR codes.
package generator

import (
	"fmt"
	"image"
	"image/color"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"
)

const (
	// QRModulePixels is the edge length of one QR module.
	QRModulePixels = 8
	// QRQuietZone is the white margin around the code, in modules.
	QRQuietZone = 1
)

// VerificationURL builds the URL a member's QR code points at.
func VerificationURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/verify-member?id=" + url.QueryEscape(id)
}

// QRCode encodes payload as a black-on-white PNG at error-correction level
// Medium with fixed module size and quiet zone.
func QRCode(payload string) ([]byte, error) {
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrQRGeneration)
	}
	q, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQRGeneration, err)
	}
	q.ForegroundColor = color.Black
	q.BackgroundColor = color.White
	q.DisableBorder = true

	code := q.Image(-QRModulePixels)
	pad := QRQuietZone * QRModulePixels
	b := code.Bounds()
	canvas := imaging.New(b.Dx()+2*pad, b.Dy()+2*pad, color.White)
	canvas = imaging.Paste(canvas, code, image.Pt(pad, pad))

	out, err := EncodePNG(canvas)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQRGeneration, err)
	}
	return out, nil
}
