// Package generator produces the rasters embedded into cards: QR codes for
// member verification and circular, bordered profile photos.
//
// Every generator is a pure function of its inputs. The same arguments
// always produce byte-identical PNG output.
package generator

import "errors"

var (
	// ErrImageDecode is returned when source bytes are not a decodable raster.
	ErrImageDecode = errors.New("image decode failed")
	// ErrQRGeneration is returned when a payload cannot be encoded.
	ErrQRGeneration = errors.New("QR code generation failed")
)
