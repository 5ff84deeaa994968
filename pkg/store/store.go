// Package store persists the active card template, reads member profiles
// and keeps issued cards.
package store

import (
	"context"
	"errors"

	"github.com/xob0t/CardStencil/pkg/member"
	"github.com/xob0t/CardStencil/pkg/template"
)

// ErrNotFound is returned when the requested template or member does not exist.
var ErrNotFound = errors.New("not found")

// TemplateStore holds the single active template slot.
type TemplateStore interface {
	Load(ctx context.Context) (*template.Template, error)
	Save(ctx context.Context, t *template.Template) error
}

// MemberSource looks up member profiles by membership number or id.
type MemberSource interface {
	Member(ctx context.Context, id string) (member.Member, error)
}
